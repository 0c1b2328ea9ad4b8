// Package model defines the declarative field descriptors behind every option
// form. A Descriptor records a field's kind (text, bool, number, object,
// group), its repetition method, the markup used for scalar inputs, ordered
// choices, nested templates for composite kinds, and presentation metadata
// such as labels, placeholders and attribute bags. Labels are either literal
// strings or computed from a LabelContext at render time.
//
// Descriptors are usually loaded from YAML (or JSON) documents through
// LoadDocument and LoadFS. Documents describe a form slug, storage layout
// defaults and an ordered tree of sections whose leaves are option entries.
// Unknown properties are rejected so malformed descriptors surface at load
// time instead of rendering silently wrong markup.
//
// Dependencies and relations reference other options by route name; the form
// binds them to live ValueSource implementations before rendering.
package model
