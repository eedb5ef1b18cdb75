package swagger

import (
	"embed"
	"io/fs"
)

//go:generate curl -sSfL -o static/redoc.standalone.js https://cdn.redoc.ly/redoc/v2.1.5/bundles/redoc.standalone.js

// redocCDN is the pinned bundle that static/redoc.standalone.js is vendored from.
const redocCDN = "https://cdn.redoc.ly/redoc/v2.1.5/bundles/redoc.standalone.js"

// OpenAPI is the embedded OpenAPI 3 document for the glwatch API.
//
//go:embed openapi.yaml
var OpenAPI []byte

//go:embed static
var static embed.FS

// RedocJS is the embedded ReDoc standalone bundle. It is empty until the
// bundle has been vendored with go generate.
var RedocJS, _ = fs.ReadFile(static, "static/redoc.standalone.js")
