package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVars(t *testing.T) {
	var nilVars Vars
	assert.Equal(t, "", nilVars.Get(VarDestination))

	v := Vars{VarDestination: "natal"}
	merged := v.Merge(Vars{VarCurrentDate: "monday, 2024/01/01", VarDestination: ""})
	assert.Equal(t, "natal", merged.Get(VarDestination), "empty values must not overwrite")
	assert.Equal(t, "monday, 2024/01/01", merged.Get(VarCurrentDate))

	clone := v.Clone()
	clone[VarDestination] = "recife"
	assert.Equal(t, "natal", v.Get(VarDestination))
}

func TestVarsContext(t *testing.T) {
	assert.NotNil(t, VarsFromContext(context.Background()))

	ctx := WithVars(context.Background(), Vars{VarDestination: "natal"})
	assert.Equal(t, "natal", VarsFromContext(ctx).Get(VarDestination))
}
