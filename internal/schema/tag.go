// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package schema

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var validColNameRx = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z_0-9]*$`)

// direction of a procedure parameter.
type direction int

const (
	dirIn direction = iota
	dirOut
	dirInOut
)

// columnTag is the parsed form of a "db" tag.
type columnTag struct {
	name       string
	primaryKey bool
	identity   bool
	nullable   bool
	dir        direction
}

// parseTag parses the input tag string and returns the column name and
// its flags.
func parseTag(tag string) (columnTag, error) {
	options := strings.Split(tag, ",")

	ct := columnTag{name: strings.TrimSpace(options[0])}
	if ct.name == "" {
		return columnTag{}, errors.New("empty db tag")
	}
	if !validColNameRx.MatchString(ct.name) {
		return columnTag{}, errors.Errorf("invalid column name in 'db' tag: %q", ct.name)
	}

	for _, flag := range options[1:] {
		switch strings.ToLower(strings.TrimSpace(flag)) {
		case "pk":
			ct.primaryKey = true
		case "identity":
			ct.identity = true
		case "nullable":
			ct.nullable = true
		case "out":
			ct.dir = dirOut
		case "inout":
			ct.dir = dirInOut
		default:
			return columnTag{}, errors.Errorf("unsupported flag %q in tag %q", flag, tag)
		}
	}
	return ct, nil
}

// parseNavTag parses a "nav" tag of the form "local=foreign[,local=foreign]".
func parseNavTag(tag string) (local []string, foreign []string, err error) {
	for _, pair := range strings.Split(tag, ",") {
		l, f, ok := strings.Cut(pair, "=")
		l, f = strings.TrimSpace(l), strings.TrimSpace(f)
		if !ok || l == "" || f == "" {
			return nil, nil, errors.Errorf("invalid key pair %q in 'nav' tag, need local=foreign", pair)
		}
		if !validColNameRx.MatchString(l) || !validColNameRx.MatchString(f) {
			return nil, nil, errors.Errorf("invalid column name in 'nav' tag: %q", pair)
		}
		local = append(local, l)
		foreign = append(foreign, f)
	}
	return local, foreign, nil
}
