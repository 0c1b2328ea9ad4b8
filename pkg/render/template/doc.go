// Package template defines the page template seam used by the form
// renderer. Field markup is built in Go; only the page chrome (head
// controls, status indicator, import/export panel) goes through a template
// engine. The default engine is github.com/goliatone/go-template.
package template
