// Package html provides the page normaliser for HTML trust pages.
// It removes scripts, styles and page chrome (nav, header, footer),
// extracts the title and visible text, and hashes URL and text.
package html
