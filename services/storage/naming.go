package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/customeros/attachstack/internal/models"
	"github.com/customeros/attachstack/internal/utils"
)

const maxFilenameBase = 150

// NamingRegistry owns collision-safe naming for one run. The orchestrator
// creates it and hands it to each backend explicitly; it is never shared
// across runs, so concurrent runs stay isolated.
type NamingRegistry struct {
	mu      sync.Mutex
	folders map[string]*folderNames
}

type folderNames struct {
	mu   sync.Mutex
	used map[string]bool
}

func NewNamingRegistry() *NamingRegistry {
	return &NamingRegistry{folders: make(map[string]*folderNames)}
}

func (r *NamingRegistry) folder(folder string) *folderNames {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[folder]
	if !ok {
		f = &folderNames{used: make(map[string]bool)}
		r.folders[folder] = f
	}
	return f
}

// Claim reserves a name unique within folder, appending an incrementing
// " (n)" suffix before the extension until free. The per-folder lock keeps
// the numbering correct under concurrent saves into the same folder. taken
// reports names that are occupied outside the registry, e.g. on disk.
func (r *NamingRegistry) Claim(folder, filename string, taken func(name string) bool) string {
	f := r.folder(folder)
	f.mu.Lock()
	defer f.mu.Unlock()

	candidate := filename
	for i := 1; f.used[candidate] || (taken != nil && taken(candidate)); i++ {
		candidate = numberedName(filename, i)
	}
	f.used[candidate] = true
	return candidate
}

func numberedName(filename string, n int) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	return fmt.Sprintf("%s (%d)%s", base, n, ext)
}

// SanitizeFilename strips characters illegal on common filesystems and caps
// the base name length, preserving the extension.
func SanitizeFilename(filename string) string {
	var sb strings.Builder
	for _, r := range filename {
		switch {
		case r < 32 || r == 127:
		case strings.ContainsRune(`<>:"/\|?*`, r):
		default:
			sb.WriteRune(r)
		}
	}

	cleaned := strings.Trim(sb.String(), " .")
	if cleaned == "" {
		return "attachment"
	}

	ext := filepath.Ext(cleaned)
	base := strings.TrimSuffix(cleaned, ext)
	for len(base) > maxFilenameBase {
		_, size := utf8.DecodeLastRuneInString(base)
		base = base[:len(base)-size]
	}
	if base == "" {
		base = "attachment"
	}
	return base + ext
}

// MessageFolderName renders the deterministic per-message directory name:
// date + sender + subject slug.
func MessageFolderName(envelope *models.MessageEnvelope) string {
	sender := envelope.SenderAddress
	if sender == "" {
		sender = envelope.SenderName
	}
	return fmt.Sprintf("%s_%s_%s",
		envelope.ReceivedAt.Format("2006-01-02"),
		utils.Slugify(sender, 40),
		utils.Slugify(utils.NormalizeSubject(envelope.Subject), 60),
	)
}
