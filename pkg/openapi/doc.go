// Package openapi builds option form documents from OpenAPI component
// schemas. Object properties become sections, scalar and list properties
// become options, and an "x-optionform" extension tunes markup and order.
package openapi
