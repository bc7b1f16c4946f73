package connector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	if err := reg.Register(Registration{
		Spec: testTypeSpec(),
		NewDriver: func(method AuthMethodSpec, cfg Config) (Driver, error) {
			return &fakeDriver{}, nil
		},
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return reg
}

func TestRegisterDuplicateType(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	err := reg.Register(Registration{
		Spec: testTypeSpec(),
		NewDriver: func(method AuthMethodSpec, cfg Config) (Driver, error) {
			return &fakeDriver{}, nil
		},
	})
	var dup *DuplicateTypeError
	if !errors.As(err, &dup) {
		t.Fatalf("want DuplicateTypeError, got %v", err)
	}
}

func TestTypeLookup(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	if _, err := reg.Type("test"); err != nil {
		t.Fatalf("Type(test): %v", err)
	}
	if _, err := reg.Type("TEST "); err != nil {
		t.Fatalf("lookup should normalize case and whitespace: %v", err)
	}

	_, err := reg.Type("nope")
	var unknown *UnknownTypeError
	if !errors.As(err, &unknown) {
		t.Fatalf("want UnknownTypeError, got %v", err)
	}

	if got := len(reg.Types()); got != 1 {
		t.Errorf("Types() len = %d, want 1", got)
	}
}

func TestRegisterRejectsInvalidSpecs(t *testing.T) {
	t.Parallel()

	newDriver := func(method AuthMethodSpec, cfg Config) (Driver, error) {
		return &fakeDriver{}, nil
	}

	base := testTypeSpec()
	noMethods := base
	noMethods.AuthMethods = nil
	undeclared := base
	undeclared.ResourceTypes = []ResourceTypeSpec{{
		ResourceTypeID: "x",
		AuthMethods:    []string{"oauth"},
		Resolver:       testShapeResolver(),
	}}
	noResolver := base
	noResolver.ResourceTypes = []ResourceTypeSpec{{
		ResourceTypeID: "x",
		AuthMethods:    []string{"password"},
	}}

	tests := []struct {
		name string
		reg  Registration
	}{
		{name: "empty type id", reg: Registration{Spec: TypeSpec{}, NewDriver: newDriver}},
		{name: "no auth methods", reg: Registration{Spec: noMethods, NewDriver: newDriver}},
		{name: "undeclared auth method", reg: Registration{Spec: undeclared, NewDriver: newDriver}},
		{name: "no resolver", reg: Registration{Spec: noResolver, NewDriver: newDriver}},
		{name: "no driver constructor", reg: Registration{Spec: testTypeSpec()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reg := NewRegistry()
			var cfgErr *ConfigurationError
			if err := reg.Register(tt.reg); !errors.As(err, &cfgErr) {
				t.Fatalf("want ConfigurationError, got %v", err)
			}
		})
	}
}

func TestNewValidatesScope(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)

	tests := []struct {
		name         string
		authMethod   string
		values       map[string]string
		resourceType string
		resourceID   string
		wantErr      any
	}{
		{
			name:         "unknown auth method",
			authMethod:   "oauth",
			values:       map[string]string{"username": "a", "password": "b"},
			resourceType: "test-repo",
			wantErr:      &ConfigurationError{},
		},
		{
			name:         "unknown resource type",
			authMethod:   "password",
			values:       map[string]string{"username": "a", "password": "b"},
			resourceType: "bogus",
			wantErr:      &ConfigurationError{},
		},
		{
			name:         "missing required field",
			authMethod:   "password",
			values:       map[string]string{"username": "a"},
			resourceType: "test-repo",
			wantErr:      &ConfigurationError{},
		},
		{
			name:         "bind id on single implicit resource",
			authMethod:   "password",
			values:       map[string]string{"username": "a", "password": "b"},
			resourceType: "test-catalog",
			resourceID:   "myhost:5000/team/app",
			wantErr:      &ConfigurationError{},
		},
		{
			name:         "invalid resource id",
			authMethod:   "password",
			values:       map[string]string{"username": "a", "password": "b"},
			resourceType: "test-repo",
			resourceID:   "not a valid id",
			wantErr:      &InvalidResourceIDError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := reg.New("test", tt.authMethod, tt.values, tt.resourceType, tt.resourceID)
			if err == nil {
				t.Fatal("expected error")
			}
			switch want := tt.wantErr.(type) {
			case *ConfigurationError:
				if !errors.As(err, &want) {
					t.Fatalf("want ConfigurationError, got %T: %v", err, err)
				}
			case *InvalidResourceIDError:
				if !errors.As(err, &want) {
					t.Fatalf("want InvalidResourceIDError, got %T: %v", err, err)
				}
			}
		})
	}
}

func TestNewCanonicalizesBoundID(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	c, err := reg.New("test", "password", map[string]string{
		"username": "a", "password": "b",
	}, "test-repo", "https://myhost:5000/team/app")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.ResourceID() != "myhost:5000/team/app" {
		t.Errorf("bound id = %q, want canonical myhost:5000/team/app", c.ResourceID())
	}
}

func TestNewDefaultsSingleMethodAndResourceType(t *testing.T) {
	t.Parallel()

	spec := testTypeSpec()
	spec.ResourceTypes = spec.ResourceTypes[:1]
	reg := NewRegistry()
	if err := reg.Register(Registration{
		Spec: spec,
		NewDriver: func(method AuthMethodSpec, cfg Config) (Driver, error) {
			return &fakeDriver{}, nil
		},
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	c, err := reg.New("test", "", map[string]string{"username": "a", "password": "b"}, "", "")
	if err != nil {
		t.Fatalf("New with defaults: %v", err)
	}
	if c.AuthMethod().MethodID != "password" {
		t.Errorf("defaulted method = %q", c.AuthMethod().MethodID)
	}
	if c.ResourceType().ResourceTypeID != "test-repo" {
		t.Errorf("defaulted resource type = %q", c.ResourceType().ResourceTypeID)
	}
}

func TestNewRejectsMethodNotAllowedForResourceType(t *testing.T) {
	t.Parallel()

	spec := testTypeSpec()
	spec.AuthMethods = append(spec.AuthMethods, AuthMethodSpec{
		MethodID: "token",
		Schema:   Schema{Fields: []FieldSpec{{Name: "token", Required: true, Secret: true}}},
	})
	// Only test-catalog accepts tokens.
	spec.ResourceTypes[1].AuthMethods = []string{"password", "token"}

	reg := NewRegistry()
	if err := reg.Register(Registration{
		Spec: spec,
		NewDriver: func(method AuthMethodSpec, cfg Config) (Driver, error) {
			return &fakeDriver{}, nil
		},
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err := reg.New("test", "token", map[string]string{"token": "t"}, "test-repo", "")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want ConfigurationError for disallowed method, got %v", err)
	}

	if _, err := reg.New("test", "token", map[string]string{"token": "t"}, "test-catalog", ""); err != nil {
		t.Fatalf("allowed method rejected: %v", err)
	}
}

func TestAutoConfigureNotSupported(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	_, err := reg.AutoConfigure(context.Background(), "test", AutoConfigureOptions{})
	var notSupported *NotSupportedError
	if !errors.As(err, &notSupported) {
		t.Fatalf("want NotSupportedError, got %v", err)
	}
}

func TestAutoConfigureBuildsInstance(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if err := reg.Register(Registration{
		Spec: testTypeSpec(),
		NewDriver: func(method AuthMethodSpec, cfg Config) (Driver, error) {
			return &fakeDriver{}, nil
		},
		AutoConfigure: func(ctx context.Context, opts AutoConfigureOptions) (Seed, error) {
			return Seed{
				AuthMethod:   "password",
				Values:       map[string]string{"username": "ambient", "password": "harvested"},
				ResourceType: "test-repo",
				ResourceID:   opts.ResourceID,
			}, nil
		},
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	c, err := reg.AutoConfigure(context.Background(), "test", AutoConfigureOptions{ResourceID: "myhost:5000/team/app"})
	if err != nil {
		t.Fatalf("AutoConfigure: %v", err)
	}
	if c.Config().Value("username") != "ambient" {
		t.Errorf("harvested username = %q", c.Config().Value("username"))
	}
	if c.ResourceID() != "myhost:5000/team/app" {
		t.Errorf("bound id = %q", c.ResourceID())
	}
}

func TestInstanceRegistry(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	c, err := reg.New("test", "password", map[string]string{"username": "a", "password": "b"}, "test-repo", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := reg.RegisterInstance("prod-registry", c); err != nil {
		t.Fatalf("RegisterInstance: %v", err)
	}
	if err := reg.RegisterInstance("prod-registry", c); err == nil {
		t.Fatal("duplicate instance name accepted")
	}

	got, ok := reg.Instance("prod-registry")
	if !ok || got != c {
		t.Fatal("Instance lookup failed")
	}
	if names := reg.InstanceNames(); len(names) != 1 || names[0] != "prod-registry" {
		t.Errorf("InstanceNames = %v", names)
	}

	if err := reg.RemoveInstance("prod-registry"); err != nil {
		t.Fatalf("RemoveInstance: %v", err)
	}
	if _, ok := reg.Instance("prod-registry"); ok {
		t.Error("instance still present after removal")
	}
}

func TestConcurrentLookups(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := reg.Type("test"); err != nil {
				t.Errorf("Type: %v", err)
			}
			_ = reg.Types()
			_ = reg.InstanceNames()
			if i%4 == 0 {
				c, err := reg.New("test", "password", map[string]string{"username": "a", "password": "b"}, "test-repo", "")
				if err != nil {
					t.Errorf("New: %v", err)
					return
				}
				_ = reg.RegisterInstance(fmt.Sprintf("inst-%d", i), c)
			}
		}(i)
	}
	wg.Wait()
}

func TestRecordRoundTrip(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	c, err := reg.New("test", "password", map[string]string{
		"username": "bob", "password": "hunter2",
	}, "test-repo", "myhost:5000/team/app")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec, err := c.Record("prod-registry")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.TypeID != "test" || rec.AuthMethod != "password" || rec.ResourceType != "test-repo" || rec.ResourceID != "myhost:5000/team/app" {
		t.Errorf("record = %+v", rec)
	}

	restored, err := reg.FromRecord(rec)
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if restored.Config().Fingerprint() != c.Config().Fingerprint() {
		t.Error("restored credentials differ from the original")
	}
	if restored.ResourceID() != c.ResourceID() {
		t.Errorf("restored id = %q", restored.ResourceID())
	}

	masked, err := MaskedConfig(rec.Config)
	if err != nil {
		t.Fatalf("MaskedConfig: %v", err)
	}
	if masked["password"] == "hunter2" {
		t.Error("masked view leaked the secret")
	}
	if masked["username"] != "bob" {
		t.Errorf("masked username = %q", masked["username"])
	}
}
