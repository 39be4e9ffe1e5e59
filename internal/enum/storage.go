package enum

type StorageKind string

const (
	StorageLocal   StorageKind = "local"
	StorageRemote  StorageKind = "remote"
	StorageArchive StorageKind = "archive"
)

func (t StorageKind) String() string {
	return string(t)
}

func DecodeStorageKind(s string) StorageKind {
	switch s {
	case "local":
		return StorageLocal
	case "remote":
		return StorageRemote
	case "archive":
		return StorageArchive
	default:
		return ""
	}
}

type ContentKind string

const (
	ContentConvertedText ContentKind = "converted_text"
	ContentOriginalBytes ContentKind = "original_bytes"
)

func (t ContentKind) String() string {
	return string(t)
}
