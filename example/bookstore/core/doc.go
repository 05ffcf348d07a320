// Package core holds the domain types of the bookstore example.
package core
