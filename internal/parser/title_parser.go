package parser

import (
	"regexp"
	"strings"
)

var (
	inlineReferenceRegex = regexp.MustCompile(`\b([A-Za-z]+)-(\d+)\b`)
	clientRegex          = regexp.MustCompile(`@([a-zA-Z0-9_-]+)`)
)

// ParsedTask represents a task parsed from quick-add syntax
type ParsedTask struct {
	Title     string
	Client    string
	Reference string
	Errors    []string
}

// ParseTaskTitle extracts metadata from a task title using natural syntax
// Syntax: "Task title @client ACME-123"
func ParseTaskTitle(input string) ParsedTask {
	result := ParsedTask{
		Title:  input,
		Errors: []string{},
	}

	// Extract ticket references (pattern: XXX-123), first one wins
	refMatches := inlineReferenceRegex.FindAllString(input, -1)
	if len(refMatches) > 0 {
		normalized, err := NormalizeReference(refMatches[0])
		if err != nil {
			result.Errors = append(result.Errors, "Invalid reference format: "+refMatches[0])
		} else {
			result.Reference = normalized
		}
		if len(refMatches) > 1 {
			result.Errors = append(result.Errors, "Only one reference per task, ignoring: "+strings.Join(refMatches[1:], ", "))
		}
		input = inlineReferenceRegex.ReplaceAllString(input, "")
	}

	// Extract client (@client-name)
	clientMatches := clientRegex.FindAllStringSubmatch(input, -1)
	if len(clientMatches) > 0 {
		result.Client = clientMatches[0][1]
		if len(clientMatches) > 1 {
			result.Errors = append(result.Errors, "Only one client per task, using @"+result.Client)
		}
		input = clientRegex.ReplaceAllString(input, "")
	}

	// Clean up the title (remove extra spaces)
	result.Title = strings.Join(strings.Fields(input), " ")

	return result
}
