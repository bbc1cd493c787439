package isolation

import (
	"fmt"
	"reflect"
	"sync"

	"gorm.io/gorm/schema"
)

// TenantOwned is implemented by every model that carries a tenant
// scope. The enforcement layer only operates on types that expose
// their owning tenant through this capability.
type TenantOwned interface {
	TenantID() string
}

// tenantColumn is the database column every registered type must carry.
const tenantColumn = "church_id"

var (
	registryMu sync.RWMutex
	registered = map[reflect.Type]struct{}{}

	schemaCache = &sync.Map{}
	namer       = schema.NamingStrategy{}
)

// MustRegister declares the given models as tenant-scoped collections.
// Each model must implement TenantOwned and its parsed schema must
// carry a church_id column; anything else panics at startup. This is
// the structural guarantee behind scoped queries: a collection type
// without a tenant column can never be registered, so it can never be
// queried through the enforcement layer.
func MustRegister(models ...TenantOwned) {
	for _, m := range models {
		if err := register(m); err != nil {
			panic(err)
		}
	}
}

func register(m TenantOwned) error {
	s, err := schema.Parse(m, schemaCache, namer)
	if err != nil {
		return fmt.Errorf("isolation: cannot parse schema for %T: %w", m, err)
	}
	if _, ok := s.FieldsByDBName[tenantColumn]; !ok {
		return fmt.Errorf("isolation: %T lacks a %s column and cannot be tenant-scoped", m, tenantColumn)
	}

	registryMu.Lock()
	registered[baseType(m)] = struct{}{}
	registryMu.Unlock()
	return nil
}

// Registered reports whether the model type has been registered.
func Registered(m any) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registered[baseType(m)]
	return ok
}

func baseType(m any) reflect.Type {
	t := reflect.TypeOf(m)
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	return t
}
