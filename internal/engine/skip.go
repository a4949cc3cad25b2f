package engine

import "strings"

// docExtensions are file types treated as terminal documents: logged and
// skipped, never rendered, recorded, or scanned for outbound links.
var docExtensions = []string{".pdf", ".csv", ".xml", ".md", ".txt", ".rtf"}

// isDocumentURL reports whether rawPath (the normalized URL's path
// component) names a document extension rather than an HTML page.
func isDocumentURL(rawPath string) bool {
	lower := strings.ToLower(rawPath)
	for _, ext := range docExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
