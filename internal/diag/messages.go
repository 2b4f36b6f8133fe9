package diag

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys used to phrase diagnostics.
const (
	MsgMetadataNameSpaces  = "MetadataNamesMustNotContainSpaces"
	MsgDuplicateMetadata   = "DuplicateMetadataDetected"
	MsgMissingMetadata     = "MissingMetadata"
	MsgUnknownVariable     = "UnknownVariable"
	MsgUnterminatedTag     = "UnterminatedTag"
	MsgUnmatchedClosingTag = "UnmatchedClosingTag"
	MsgMarkdownConversion  = "MarkdownConversionFailed"
	MsgEmptyInclude        = "EmptyIncludePath"
	MsgIncludeNotFound     = "IncludeNotFound"
	MsgParamOutsideObject  = "ParamOutsideObject"
	MsgTagOutsideParam     = "TagOutsideParam"
)

var english = map[string]string{
	MsgMetadataNameSpaces:  "Metadata name %q must not contain spaces",
	MsgDuplicateMetadata:   "Duplicate metadata %q detected, keeping the first value",
	MsgMissingMetadata:     "Missing metadata %q",
	MsgUnknownVariable:     "Unknown variable %q",
	MsgUnterminatedTag:     "Unterminated %s tag %q",
	MsgUnmatchedClosingTag: "Closing %s tag has no matching opening tag",
	MsgMarkdownConversion:  "Markdown conversion failed: %v",
	MsgEmptyInclude:        "Include tag has an empty path",
	MsgIncludeNotFound:     "Included document %q not found",
	MsgParamOutsideObject:  "%s tag %q is outside any object and is kept as text",
	MsgTagOutsideParam:     "%s tag %q in object %s is outside any parameter and is ignored",
}

var (
	supportedTags = []language.Tag{language.English}
	supported     = language.NewMatcher(supportedTags)
)

// Messages is the localized-message lookup used to phrase diagnostics.
type Messages struct {
	printer *message.Printer
}

// NewMessages builds a lookup for tag. Unsupported languages fall back to
// English.
func NewMessages(tag language.Tag) *Messages {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, msg := range english {
		// SetString only fails on malformed messages, which the table above is not.
		_ = b.SetString(language.English, key, msg)
	}
	_, idx, _ := supported.Match(tag)
	return &Messages{printer: message.NewPrinter(supportedTags[idx], message.Catalog(b))}
}

// Text formats the message for key with args.
func (m *Messages) Text(key string, args ...any) string {
	if m == nil {
		m = defaultMessages
	}
	return m.printer.Sprintf(message.Key(key, key), args...)
}

var defaultMessages = NewMessages(language.English)
