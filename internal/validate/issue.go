package validate

import (
	"fmt"
	"strings"
)

// Issue codes (V100-V199)
const (
	// Document errors (V100-V109)
	ErrMissingField      = "V100" // required field absent or wrong type
	ErrMalformedDocument = "V101" // body is not a decodable document

	// Capabilities errors (V110-V119)
	ErrInvalidVersion     = "V110" // version is not a semantic version
	ErrUnsupportedVersion = "V111" // version outside the accepted range
	ErrFeatureCombination = "V112" // feature declared without its prerequisite

	// Schema errors (V120-V139)
	ErrMalformedType     = "V120" // type reference variant is incomplete
	ErrUnresolvedType    = "V121" // named type is not declared
	ErrDuplicateName     = "V122" // duplicate type, column, collection or command
	ErrMissingRowType    = "V123" // collection row type is not an object type
	ErrUnknownColumn     = "V124" // constraint names a column the row type lacks
	ErrUnknownCollection = "V125" // foreign key targets an undeclared collection
)

// Issue is a single structural problem found in a document.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (i Issue) Error() string {
	if i.Field == "" {
		return fmt.Sprintf("[%s] %s", i.Code, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Code, i.Field, i.Message)
}

func issuef(field, code, format string, args ...any) Issue {
	return Issue{Field: field, Code: code, Message: fmt.Sprintf(format, args...)}
}

// reason flattens issues into a single outcome reason.
func reason(issues []Issue) string {
	parts := make([]string, len(issues))
	for i, is := range issues {
		parts[i] = is.Error()
	}
	return strings.Join(parts, "; ")
}
