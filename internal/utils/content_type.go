package utils

import "strings"

// GetFileExtensionFromContentType picks a filename extension for attachments
// that arrive without one
func GetFileExtensionFromContentType(contentType string) string {
	contentType = strings.ToLower(contentType)

	switch {
	case strings.Contains(contentType, "pdf"):
		return "pdf"
	case strings.Contains(contentType, "wordprocessingml") || strings.Contains(contentType, "msword"):
		return "docx"
	case strings.Contains(contentType, "spreadsheetml") || strings.Contains(contentType, "excel"):
		return "xlsx"
	case strings.Contains(contentType, "presentationml") || strings.Contains(contentType, "powerpoint"):
		return "pptx"
	case strings.Contains(contentType, "hwp"):
		return "hwp"
	case strings.Contains(contentType, "html"):
		return "html"
	case strings.Contains(contentType, "csv"):
		return "csv"
	case strings.Contains(contentType, "json"):
		return "json"
	case strings.Contains(contentType, "xml"):
		return "xml"
	case strings.Contains(contentType, "markdown"):
		return "md"
	case strings.Contains(contentType, "text/plain"):
		return "txt"
	case strings.Contains(contentType, "rfc822"):
		return "eml"
	case strings.Contains(contentType, "jpeg") || strings.Contains(contentType, "jpg"):
		return "jpg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "zip") || strings.Contains(contentType, "compressed"):
		return "zip"
	default:
		return "bin"
	}
}
