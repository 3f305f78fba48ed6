// Package web carries the server-rendered screens and their assets.
package web

import "embed"

// Templates holds layouts, partials and page templates parsed by the view engine.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Static holds the stylesheet and the small script that wires auto-clearing
// notices, dismiss buttons and auto-submitting selects.
//
//go:embed static/**/*
var Static embed.FS
