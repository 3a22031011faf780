// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package command builds parameterized commands from a schema descriptor and
// a dialect provider.
//
// Builders precompute their static text once and are safe for concurrent
// use. Every call returns a new driver.Command, so the parameters bound for
// one call are never seen by another.
package command
