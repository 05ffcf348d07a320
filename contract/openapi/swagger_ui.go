package openapi

import (
	"bytes"
	"html/template"
)

// Default asset locations of the documentation page.
const (
	DefaultSwaggerJSURL        = "https://cdn.jsdelivr.net/npm/swagger-ui-dist@3/swagger-ui-bundle.js"
	DefaultSwaggerCSSURL       = "https://cdn.jsdelivr.net/npm/swagger-ui-dist@3/swagger-ui.css"
	DefaultSwaggerFaviconURL   = "https://fastapi.tiangolo.com/img/favicon.png"
	DefaultContractsPluginURL  = "https://unpkg.com/swagger-ui-plugin-contracts"
	DefaultDocsPath            = "/docs"
	DefaultOAuth2RedirectPath  = "/docs/oauth2-redirect"
	DefaultOpenAPIJSONPath     = "/openapi.json"
	DefaultOpenAPIYAMLPath     = "/openapi.yaml"
	swaggerUITitleSuffix       = " - Swagger UI"
	swaggerUIDefaultTitleStart = "API"
)

// SwaggerUIConfig configures the documentation page.
// Empty asset URLs fall back to the defaults.
type SwaggerUIConfig struct {
	OpenAPIURL         string
	Title              string
	SwaggerJSURL       string
	SwaggerCSSURL      string
	SwaggerFaviconURL  string
	ContractsPluginURL string
	OAuth2RedirectURL  string
	InitOAuth          map[string]any
}

func (c SwaggerUIConfig) withDefaults() SwaggerUIConfig {
	if c.Title == "" {
		c.Title = swaggerUIDefaultTitleStart + swaggerUITitleSuffix
	}
	if c.OpenAPIURL == "" {
		c.OpenAPIURL = DefaultOpenAPIJSONPath
	}
	if c.SwaggerJSURL == "" {
		c.SwaggerJSURL = DefaultSwaggerJSURL
	}
	if c.SwaggerCSSURL == "" {
		c.SwaggerCSSURL = DefaultSwaggerCSSURL
	}
	if c.SwaggerFaviconURL == "" {
		c.SwaggerFaviconURL = DefaultSwaggerFaviconURL
	}
	if c.ContractsPluginURL == "" {
		c.ContractsPluginURL = DefaultContractsPluginURL
	}

	return c
}

var swaggerUITemplate = template.Must(template.New("swagger-ui").Parse(`<!DOCTYPE html>
<html>
<head>
<link type="text/css" rel="stylesheet" href="{{.SwaggerCSSURL}}">
<link rel="shortcut icon" href="{{.SwaggerFaviconURL}}">
<title>{{.Title}}</title>
</head>
<body>
<div id="swagger-ui">
</div>
<script src="{{.SwaggerJSURL}}"></script>
<script src="{{.ContractsPluginURL}}"></script>
<script>
const ui = SwaggerUIBundle({
    url: {{.OpenAPIURL}},
{{- if .OAuth2RedirectURL}}
    oauth2RedirectUrl: window.location.origin + {{.OAuth2RedirectURL}},
{{- end}}
    dom_id: '#swagger-ui',
    presets: [
        SwaggerUIBundle.presets.apis,
        SwaggerUIBundle.SwaggerUIStandalonePreset
    ],
    plugins: [
        ContractsPlugin
    ],
    layout: "BaseLayout",
    deepLinking: true,
    showExtensions: true,
    showCommonExtensions: true
})
{{- if .InitOAuth}}
ui.initOAuth({{.InitOAuth}})
{{- end}}
</script>
</body>
</html>
`))

// SwaggerUIHTML renders the Swagger UI page with the contracts plugin loaded and extensions shown.
func SwaggerUIHTML(config SwaggerUIConfig) ([]byte, error) {
	var buf bytes.Buffer
	if err := swaggerUITemplate.Execute(&buf, config.withDefaults()); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// OAuth2RedirectHTML is the page Swagger UI opens as OAuth2 redirect target.
// It hands the authorization response back to the opening documentation page.
const OAuth2RedirectHTML = `<!doctype html>
<html lang="en-US">
<head>
<title>Swagger UI: OAuth2 Redirect</title>
</head>
<body>
<script>
    'use strict';
    function run () {
        var oauth2 = window.opener.swaggerUIRedirectOauth2;
        var sentState = oauth2.state;
        var redirectUrl = oauth2.redirectUrl;
        var isValid, qp, arr;

        if (/code|token|error/.test(window.location.hash)) {
            qp = window.location.hash.substring(1);
        } else {
            qp = location.search.substring(1);
        }

        arr = qp.split("&");
        arr.forEach(function (v,i,_arr) { _arr[i] = '"' + v.replace('=', '":"') + '"';});
        qp = qp ? JSON.parse('{' + arr.join() + '}',
                function (key, value) {
                    return key === "" ? value : decodeURIComponent(value);
                }
        ) : {};

        isValid = qp.state === sentState;

        if ((oauth2.auth.schema.get("flow") === "accessCode" ||
             oauth2.auth.schema.get("flow") === "authorizationCode" ||
             oauth2.auth.schema.get("flow") === "authorization_code") && !oauth2.auth.code) {
            if (!isValid) {
                oauth2.errCb({authId: oauth2.auth.name, source: "auth", level: "warning", message: "Authorization may be unsafe, passed state was changed in server. The passed state wasn't returned from auth server."});
            }

            if (qp.code) {
                delete oauth2.state;
                oauth2.auth.code = qp.code;
                oauth2.callback({auth: oauth2.auth, redirectUrl: redirectUrl});
            } else {
                let oauthErrorMsg;
                if (qp.error) {
                    oauthErrorMsg = "["+qp.error+"]: " +
                        (qp.error_description ? qp.error_description+ ". " : "no accessCode received from the server. ") +
                        (qp.error_uri ? "More info: "+qp.error_uri : "");
                }

                oauth2.errCb({authId: oauth2.auth.name, source: "auth", level: "error", message: oauthErrorMsg || "[Authorization failed]: no accessCode received from the server."});
            }
        } else {
            oauth2.callback({auth: oauth2.auth, token: qp, isValid: isValid, redirectUrl: redirectUrl});
        }
        window.close();
    }

    window.addEventListener('DOMContentLoaded', function () { run(); });
</script>
</body>
</html>
`
