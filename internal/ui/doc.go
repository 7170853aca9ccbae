// Package ui holds the terminal presentation used by the spotlink CLI.
//
// A [Palette] wraps a handful of [lipgloss] styles (title, ok, error, warning and help text) and a [Table]
// lays out aligned columns, such as the route listing printed by `spotlink routes`.
package ui
