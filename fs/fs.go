// Package appfs embeds static assets shipped with the binary:
// database migrations and email templates.
package appfs

import "embed"

//go:embed migrations templates
var FS embed.FS
