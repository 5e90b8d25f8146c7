// Package ui holds the terminal styling shared by the CLI commands.
//
// A [Palette] names the handful of styles the commands print with (titles, success, errors,
// warnings, help text) and renders bordered tables for listings. [Styles] is the default
// palette; commands write its output straight to the runner's writer, so nothing here
// assumes an interactive terminal.
package ui
