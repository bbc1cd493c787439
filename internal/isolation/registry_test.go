package isolation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Amoako419/PhotoShare/internal/model"
)

// scopelessModel implements TenantOwned but has no tenant column; the
// structural check must refuse it.
type scopelessModel struct {
	ID   uint
	Name string
}

func (scopelessModel) TenantID() string { return "" }

func TestMustRegisterAcceptsScopedModels(t *testing.T) {
	assert.NotPanics(t, func() {
		MustRegister(&model.Album{}, &model.Photo{})
	})
	assert.True(t, Registered(&model.Album{}))
	assert.True(t, Registered(&model.Photo{}))
}

func TestMustRegisterPanicsWithoutTenantColumn(t *testing.T) {
	assert.Panics(t, func() {
		MustRegister(&scopelessModel{})
	})
	assert.False(t, Registered(&scopelessModel{}))
}

func TestRegisteredMatchesValueAndPointer(t *testing.T) {
	MustRegister(&model.Album{})

	assert.True(t, Registered(&model.Album{}))
	assert.True(t, Registered(model.Album{}))
	assert.True(t, Registered(&[]model.Album{}))
	assert.False(t, Registered(&model.Tenant{}))
}
