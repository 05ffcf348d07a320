package core

// Book is one entry of the bookstore catalog, identified by its title.
type Book struct {
	Identifier string `json:"identifier" db:"identifier"`
	Author     string `json:"author" db:"author"`
	Category   string `json:"category" db:"category"`
}

// SeedBooks returns the books the example catalog starts with.
func SeedBooks() []Book {
	return []Book{
		{Identifier: "The Blazing World", Author: "Margaret Cavendish", Category: "sci-fi"},
		{Identifier: "Pride and Prejudice", Author: "Jane Austen", Category: "romance"},
	}
}
