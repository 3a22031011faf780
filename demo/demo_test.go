// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package demo

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), &out))
	assert.Equal(t, `Saba is taller than Jim.
Dave is taller than Jim.
Sophie is taller than Jim.
Kiri is taller than Jim.
Berlin: Saba, Sophie
Brasília: Dave
Cape Town: Kiri
Sophie is taller than Jim.
`, out.String())
}
