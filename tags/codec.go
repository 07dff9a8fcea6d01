package tags

import (
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Delimiter separates tags in the encoded column. It is reserved and may not
// appear inside a tag.
const Delimiter = ","

var ErrInvalidTag = errors.New("invalid tag")

// Validate checks that every tag is non-empty and free of the delimiter
func Validate(seq []string) error {
	for i, t := range seq {
		if t == "" {
			return fmt.Errorf("tag at position %d is empty: %w", i, ErrInvalidTag)
		}
		if strings.Contains(t, Delimiter) {
			return fmt.Errorf("tag %q contains reserved delimiter %q: %w", t, Delimiter, ErrInvalidTag)
		}
	}
	return nil
}

// Encode joins an ordered tag sequence into its stored scalar form
func Encode(seq []string) (string, error) {
	if err := Validate(seq); err != nil {
		return "", err
	}
	return strings.Join(seq, Delimiter), nil
}

// Decode splits a stored scalar back into the ordered tag sequence.
// An empty scalar is an empty sequence, never [""].
func Decode(encoded string) []string {
	if encoded == "" {
		return []string{}
	}
	return strings.Split(encoded, Delimiter)
}

// Append returns seq followed by more. Duplicates are kept.
func Append(seq []string, more ...string) []string {
	out := make([]string, 0, len(seq)+len(more))
	out = append(out, seq...)
	return append(out, more...)
}

// RemoveFirst drops the first occurrence of tag, reporting whether one was found
func RemoveFirst(seq []string, tag string) ([]string, bool) {
	for i, t := range seq {
		if t == tag {
			out := make([]string, 0, len(seq)-1)
			out = append(out, seq[:i]...)
			return append(out, seq[i+1:]...), true
		}
	}
	return seq, false
}

// Primary returns the first tag, or "" for an empty sequence
func Primary(seq []string) string {
	if len(seq) == 0 {
		return ""
	}
	return seq[0]
}

// ContainsSubstring matches rows whose encoded tag column contains substr.
//
// This is plain substring containment on the joined scalar, so "at" matches a
// row tagged "cat" and "a,b" matches a row tagged ["a", "b"]. Callers that
// need membership semantics should use HasTag.
func ContainsSubstring(column, substr string) sq.Sqlizer {
	return sq.Expr(fmt.Sprintf("instr(%s, ?) > 0", column), substr)
}

// HasTag matches rows of the image table aliased by imageIDColumn that carry
// tag exactly, using the image_tags index.
func HasTag(imageIDColumn, tag string) sq.Sqlizer {
	return sq.Expr(
		fmt.Sprintf("EXISTS (SELECT 1 FROM image_tags it WHERE it.image_id = %s AND it.name = ?)", imageIDColumn),
		tag,
	)
}
