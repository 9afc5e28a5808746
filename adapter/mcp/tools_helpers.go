package mcp

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/escrowly/adapter/cli"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/queries"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
)

const dateLayout = "2006-01-02"

var errNoDatabase = errors.New("requires database connection")

// toolset binds tool implementations to the CLI app.
type toolset struct {
	app *cli.App
}

// viewer returns the configured viewer, switched to role when it is set.
func (t *toolset) viewer(role string) (queries.ViewerQuery, error) {
	v, err := t.app.Viewer()
	if err != nil {
		return queries.ViewerQuery{}, err
	}
	if role != "" {
		r, err := domain.ParseRole(role)
		if err != nil {
			return queries.ViewerQuery{}, err
		}
		v.Role = r
	}
	return v, nil
}

func parseUUID(value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.UUID{}, errors.New("id is required")
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("invalid id: %w", err)
	}
	return id, nil
}

func parseOptionalUUID(value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, nil
	}
	return parseUUID(value)
}

func parseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format, use YYYY-MM-DD: %w", err)
	}
	return parsed, nil
}
