package entity

import (
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/agentic-research/syncgen/api"
)

// NamesFromID derives every spelling of an entity id.
func NamesFromID(id string) api.EntityNames {
	snake := inflect.Underscore(id)
	fs := strings.ToLower(inflect.Dasherize(snake))
	capital := inflect.Camelize(snake)
	camel := inflect.CamelizeDownFirst(snake)
	upper := strings.ToUpper(snake)
	return api.EntityNames{
		Fs:            fs,
		FsPlural:      inflect.Pluralize(fs),
		Camel:         camel,
		CamelPlural:   inflect.Pluralize(camel),
		Capital:       capital,
		CapitalPlural: inflect.Pluralize(capital),
		Upper:         upper,
		Constant:      upper,
	}
}
