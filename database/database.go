package database

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/camden-git/mememanager/tags"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// ImageQuery holds the optional filters of an image search.
// Empty strings mean "no filter".
type ImageQuery struct {
	Tag   string
	Group string
	Match string // TagMatchExact or TagMatchSubstring
}

// filteredImages applies the query's predicates to a select over "images i"
func filteredImages(b sq.SelectBuilder, q ImageQuery) (sq.SelectBuilder, error) {
	b = b.From("images i")

	if q.Group != "" {
		// inner join: an unknown group name simply yields no rows
		b = b.Join("groups g ON g.id = i.group_id").Where(sq.Eq{"g.name": q.Group})
	}

	if q.Tag != "" {
		match := q.Match
		if match == "" {
			match = DefaultTagMatch
		}
		switch match {
		case TagMatchExact:
			b = b.Where(tags.HasTag("i.id", q.Tag))
		case TagMatchSubstring:
			b = b.Where(tags.ContainsSubstring("i.tags", q.Tag))
		default:
			return b, fmt.Errorf("invalid tag match mode: %s", q.Match)
		}
	}
	return b, nil
}

// BuildImageCount builds the statement counting all images matching q
func BuildImageCount(q ImageQuery) (string, []interface{}, error) {
	queryBuilder, err := filteredImages(psql.Select("COUNT(*)"), q)
	if err != nil {
		return "", nil, err
	}
	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build SQL for BuildImageCount: %w", err)
	}
	return sqlStr, args, nil
}

// BuildImagePage builds the statement selecting one page of matching image ids,
// oldest first with id as the tie breaker
func BuildImagePage(q ImageQuery, limit, offset uint64) (string, []interface{}, error) {
	queryBuilder, err := filteredImages(psql.Select("i.id"), q)
	if err != nil {
		return "", nil, err
	}
	queryBuilder = queryBuilder.
		OrderBy("i.created_at ASC", "i.id ASC").
		Limit(limit).
		Offset(offset)

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build SQL for BuildImagePage: %w", err)
	}
	return sqlStr, args, nil
}
