package tidy

// DefaultWorkers is the size of the executor and hashing pools when the
// configuration leaves it unset.
const DefaultWorkers = 4

// DefaultRules returns the built-in category table used when a config does
// not define its own rules.
func DefaultRules() []CategoryRule {
	return []CategoryRule{
		{Name: "Images", Extensions: []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".svg", ".webp", ".tiff", ".ico"}},
		{Name: "Documents", Extensions: []string{".pdf", ".docx", ".doc", ".txt", ".rtf", ".odt", ".xlsx", ".xls", ".ods", ".pptx", ".ppt", ".csv", ".md"}},
		{Name: "Videos", Extensions: []string{".mp4", ".avi", ".mov", ".mkv", ".wmv", ".webm", ".flv", ".mpeg"}},
		{Name: "Audio", Extensions: []string{".mp3", ".wav", ".ogg", ".m4a", ".flac", ".aac", ".wma", ".aiff"}},
		{Name: "Archives", Extensions: []string{".zip", ".rar", ".7z", ".tar", ".gz", ".bz2", ".xz", ".iso"}},
		{Name: "Code", Extensions: []string{".py", ".js", ".ts", ".html", ".css", ".scss", ".java", ".cpp", ".c", ".cs", ".json", ".xml", ".php", ".sh", ".bat", ".go", ".rb", ".swift"}},
		{Name: "Executables", Extensions: []string{".exe", ".msi", ".apk", ".appimage", ".dmg", ".deb", ".rpm"}},
		{Name: "Fonts", Extensions: []string{".ttf", ".otf", ".woff", ".woff2"}},
		{Name: "Design", Extensions: []string{".psd", ".ai", ".xd", ".sketch", ".fig"}},
		{Name: "Ebooks", Extensions: []string{".epub", ".mobi", ".azw", ".djvu"}},
	}
}

var defaultExtIndex = func() map[string]string {
	m := make(map[string]string)
	for _, r := range DefaultRules() {
		for _, ext := range r.Extensions {
			m[ext] = r.Name
		}
	}
	return m
}()

// SuggestCategory returns the built-in category for ext, if one exists.
// It is used to hint at a rule for files that fell to Uncategorized.
func SuggestCategory(ext string) (string, bool) {
	name, ok := defaultExtIndex[NormalizeExt(ext)]
	return name, ok
}
