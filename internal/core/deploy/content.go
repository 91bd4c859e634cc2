package deploy

import (
	"context"
	"fmt"
	"time"

	"blogsmith/internal/domain"
)

// ConfigGenerator is the site-config assistant seam: a stateless
// text-generation call. The pipeline never depends on it succeeding.
type ConfigGenerator interface {
	Enabled() bool
	GenerateConfig(ctx context.Context, title, siteName, prompt string) (string, error)
}

// scaffoldFiles is the bootstrap commit: enough for the repository to be
// recognizably a blog before any content lands.
func scaffoldFiles(d *domain.Deployment) []domain.ContentFile {
	readme := fmt.Sprintf("# %s\n\nA blog built with blogsmith.\n", d.Title)

	return []domain.ContentFile{
		{Path: "README.md", Content: []byte(readme)},
		{Path: ".gitignore", Content: []byte("public/\nresources/\n.hugo_build.lock\n")},
	}
}

// contentFiles is the second commit: generator config plus a first post.
// The config comes from the assistant when one is configured and answering;
// otherwise a deterministic template is used.
func (o *Orchestrator) contentFiles(ctx context.Context, d *domain.Deployment) []domain.ContentFile {
	config := o.siteConfig(ctx, d)

	welcome := fmt.Sprintf(`---
title: "Welcome"
date: %s
draft: false
---

Welcome to **%s**. This site was provisioned automatically; edit
content/posts in the repository to publish your own writing.
`, time.Now().UTC().Format("2006-01-02"), d.Title)

	return []domain.ContentFile{
		{Path: "hugo.toml", Content: []byte(config)},
		{Path: "content/posts/welcome.md", Content: []byte(welcome)},
		{Path: "archetypes/default.md", Content: []byte("---\ntitle: \"{{ replace .Name \"-\" \" \" | title }}\"\ndate: {{ .Date }}\ndraft: true\n---\n")},
	}
}

func (o *Orchestrator) siteConfig(ctx context.Context, d *domain.Deployment) string {
	if o.generator != nil && o.generator.Enabled() {
		prompt := fmt.Sprintf("Hugo site config for a blog titled %q", d.Title)
		if d.Theme != "" {
			prompt += fmt.Sprintf(" using the %q theme", d.Theme)
		}

		config, err := o.generator.GenerateConfig(ctx, d.Title, d.SiteName, prompt)
		if err == nil {
			return config
		}
		o.log.Warn("assistant config generation failed, using template", "deployment_id", d.ID, "error", err)
	}

	config := fmt.Sprintf("baseURL = 'https://%s.%s/'\nlanguageCode = 'en-us'\ntitle = %q\n", d.SiteName, o.hostingDomain, d.Title)
	if d.Theme != "" {
		config += fmt.Sprintf("theme = %q\n", d.Theme)
	}

	return config
}
