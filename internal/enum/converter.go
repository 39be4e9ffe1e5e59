package enum

type ConverterKind string

const (
	ConverterPDF        ConverterKind = "pdf"
	ConverterWord       ConverterKind = "word"
	ConverterExcel      ConverterKind = "excel"
	ConverterPowerPoint ConverterKind = "powerpoint"
	ConverterHWP        ConverterKind = "hwp"
	ConverterHWPX       ConverterKind = "hwpx"
	ConverterPlaintext  ConverterKind = "plaintext"
	ConverterHTML       ConverterKind = "html"
	ConverterEML        ConverterKind = "eml"
)

func (t ConverterKind) String() string {
	return string(t)
}

type UploadState string

const (
	UploadNotStarted  UploadState = "not_started"
	UploadSessionOpen UploadState = "session_open"
	UploadUploading   UploadState = "uploading"
	UploadCompleted   UploadState = "completed"
	UploadAborted     UploadState = "aborted"
)

func (t UploadState) String() string {
	return string(t)
}

type ItemOutcome string

const (
	OutcomeSucceeded ItemOutcome = "succeeded"
	OutcomeFailed    ItemOutcome = "failed"
	OutcomeSkipped   ItemOutcome = "skipped"
)

func (t ItemOutcome) String() string {
	return string(t)
}
