//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package prompt renders the system prompt for an agent role from embedded
// templates.
package prompt

import (
	"embed"
	"fmt"
	"path"
	"strings"
	"text/template"
	"time"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// DefaultRole is used when the agent does not declare a role.
const DefaultRole = "coder"

// Data is the variable set available to prompt templates.
type Data struct {
	// Role is the agent role the prompt is rendered for.
	Role string
	// Workspace is the absolute workspace directory.
	Workspace string
	// Date is today's date, yyyy-mm-dd.
	Date string
}

// Library holds one parsed template per role.
type Library struct {
	templates map[string]*template.Template
}

// NewLibrary parses the embedded templates. The template file name, minus
// the .tmpl suffix, is the role it serves.
func NewLibrary() (*Library, error) {
	entries, err := templatesFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read prompt templates: %w", err)
	}
	lib := &Library{templates: make(map[string]*template.Template, len(entries))}
	for _, entry := range entries {
		name := entry.Name()
		raw, err := templatesFS.ReadFile(path.Join("templates", name))
		if err != nil {
			return nil, fmt.Errorf("read prompt template %s: %w", name, err)
		}
		role := strings.TrimSuffix(name, ".tmpl")
		tmpl, err := template.New(role).Parse(string(raw))
		if err != nil {
			return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
		}
		lib.templates[role] = tmpl
	}
	return lib, nil
}

// Render produces the system prompt for a role. Unknown roles fall back to
// the default role's template.
func (l *Library) Render(role, workspace string) (string, error) {
	if role == "" {
		role = DefaultRole
	}
	tmpl, ok := l.templates[role]
	if !ok {
		tmpl, ok = l.templates[DefaultRole]
		if !ok {
			return "", fmt.Errorf("no prompt template for role %q", role)
		}
	}
	var sb strings.Builder
	err := tmpl.Execute(&sb, Data{
		Role:      role,
		Workspace: workspace,
		Date:      time.Now().Format("2006-01-02"),
	})
	if err != nil {
		return "", fmt.Errorf("render prompt for role %q: %w", role, err)
	}
	return sb.String(), nil
}
