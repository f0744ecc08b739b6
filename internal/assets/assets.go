/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package assets provides embedded templates and schemas that ship with the
// cargohook binary. Hook shim templates live under embedded_templates/hooks
// and manifest schemas under embedded_schemas.
package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
)

//go:embed embedded_templates
var embeddedTemplates embed.FS

//go:embed embedded_schemas
var embeddedSchemas embed.FS

// GetTemplatesFS returns the embedded templates filesystem rooted at
// embedded_templates.
func GetTemplatesFS() (fs.FS, error) {
	sub, err := fs.Sub(embeddedTemplates, "embedded_templates")
	if err != nil {
		return nil, fmt.Errorf("failed to access embedded templates: %w", err)
	}
	return sub, nil
}

// GetSchemasFS returns the embedded schemas filesystem rooted at
// embedded_schemas.
func GetSchemasFS() (fs.FS, error) {
	sub, err := fs.Sub(embeddedSchemas, "embedded_schemas")
	if err != nil {
		return nil, fmt.Errorf("failed to access embedded schemas: %w", err)
	}
	return sub, nil
}

// GetHookTemplate returns the raw handlebars source for a hook shim template,
// e.g. "pre-commit.sh.hbs".
func GetHookTemplate(name string) ([]byte, error) {
	data, err := embeddedTemplates.ReadFile(path.Join("embedded_templates", "hooks", name))
	if err != nil {
		return nil, fmt.Errorf("hook template %s not found: %w", name, err)
	}
	return data, nil
}

// GetSchema returns the raw bytes of an embedded schema by filename,
// e.g. "hooks-manifest-v1.0.0.json".
func GetSchema(name string) ([]byte, bool) {
	data, err := embeddedSchemas.ReadFile(path.Join("embedded_schemas", name))
	if err != nil {
		return nil, false
	}
	return data, true
}

// ListHookTemplates enumerates the available hook shim templates.
func ListHookTemplates() ([]string, error) {
	entries, err := embeddedTemplates.ReadDir(path.Join("embedded_templates", "hooks"))
	if err != nil {
		return nil, fmt.Errorf("failed to list hook templates: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
