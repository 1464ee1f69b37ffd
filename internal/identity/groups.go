package identity

import "strings"

// GroupEncoding is one of the two shapes a group claim arrives in: a native list
// (GroupList) or a single bracketed, comma separated string (BracketedGroups).
type GroupEncoding interface {
	rawGroups() []string
}

// GroupList is a group claim delivered as a JSON array.
type GroupList []string

// BracketedGroups is a group claim flattened into a string such as "[GroupA, GroupB]".
type BracketedGroups string

func (l GroupList) rawGroups() []string {
	return l
}

func (b BracketedGroups) rawGroups() []string {
	inner := strings.TrimSpace(string(b))
	inner = strings.TrimLeft(inner, "[")
	inner = strings.TrimRight(inner, "]")
	if strings.TrimSpace(inner) == "" {
		return nil
	}
	return strings.Split(inner, ",")
}

// DecodeGroupEncoding classifies a raw claim value. Anything that is neither a
// string nor a list decodes to an empty GroupList.
func DecodeGroupEncoding(raw any) GroupEncoding {
	switch v := raw.(type) {
	case string:
		return BracketedGroups(v)
	case []string:
		return GroupList(v)
	case []any:
		groups := make(GroupList, 0, len(v))
		for _, element := range v {
			if group, ok := element.(string); ok {
				groups = append(groups, group)
			}
		}
		return groups
	default:
		return GroupList(nil)
	}
}

// NormalizeGroups trims every element and drops empty ones.
func NormalizeGroups(encoding GroupEncoding) Groups {
	groups := Groups{}
	if encoding == nil {
		return groups
	}
	for _, group := range encoding.rawGroups() {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}
		groups[group] = struct{}{}
	}
	return groups
}
