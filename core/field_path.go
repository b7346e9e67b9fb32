package core

// FieldPath names an event field a predicate can test. The set is closed.
type FieldPath string

const (
	FieldAttributeTagName FieldPath = "AttributeTag.name"
	FieldEventTagName     FieldPath = "EventTag.name"
	FieldTagName          FieldPath = "Tag.name"
	FieldOrgcName         FieldPath = "Orgc.name"
	FieldOrgcUUID         FieldPath = "Orgc.uuid"
)

// KnownFieldPaths lists the supported field paths in documentation order.
var KnownFieldPaths = []FieldPath{
	FieldAttributeTagName,
	FieldEventTagName,
	FieldTagName,
	FieldOrgcName,
	FieldOrgcUUID,
}

// ParseFieldPath maps a rule key to a known field path. Matching is case-sensitive.
func ParseFieldPath(s string) (FieldPath, bool) {
	for _, fp := range KnownFieldPaths {
		if string(fp) == s {
			return fp, true
		}
	}
	return "", false
}

// IsKnown reports whether fp is one of the supported field paths.
func (fp FieldPath) IsKnown() bool {
	_, ok := ParseFieldPath(string(fp))
	return ok
}

// ExtractValues returns the strings found at path in event, in document order.
// Duplicates are preserved. Unknown paths and nil events yield an empty slice.
func ExtractValues(path FieldPath, event *Event) []string {
	if event == nil {
		return nil
	}

	switch path {
	case FieldAttributeTagName:
		return appendAttributeTags(nil, event)
	case FieldEventTagName:
		return appendEventTags(nil, event)
	case FieldTagName:
		values := appendAttributeTags(nil, event)
		return appendEventTags(values, event)
	case FieldOrgcName:
		if event.Orgc == nil || event.Orgc.Name == "" {
			return nil
		}
		return []string{event.Orgc.Name}
	case FieldOrgcUUID:
		if event.Orgc == nil || event.Orgc.UUID == "" {
			return nil
		}
		return []string{event.Orgc.UUID}
	default:
		return nil
	}
}

// appendAttributeTags appends tags of event-level attributes, then tags of
// attributes nested in objects.
func appendAttributeTags(dst []string, event *Event) []string {
	for _, attr := range event.Attribute {
		for _, at := range attr.AttributeTag {
			dst = append(dst, at.Tag.Name)
		}
	}
	for _, obj := range event.Object {
		for _, attr := range obj.Attribute {
			for _, at := range attr.AttributeTag {
				dst = append(dst, at.Tag.Name)
			}
		}
	}
	return dst
}

func appendEventTags(dst []string, event *Event) []string {
	for _, et := range event.EventTag {
		dst = append(dst, et.Tag.Name)
	}
	return dst
}
