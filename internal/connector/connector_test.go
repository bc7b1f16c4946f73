package connector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClient struct {
	mu       sync.Mutex
	resource string
	closed   bool
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeDriver struct {
	mu           sync.Mutex
	connects     int
	verifies     int
	logins       int
	connectDelay time.Duration
	connectErr   error
	verifyErr    error
	loginErr     error
	discovered   []string
	lastVerify   Request
}

func (d *fakeDriver) Connect(ctx context.Context, req Request) (any, error) {
	d.mu.Lock()
	d.connects++
	delay, err := d.connectDelay, d.connectErr
	d.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return &fakeClient{resource: req.ResourceID}, nil
}

func (d *fakeDriver) Verify(ctx context.Context, req Request) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.verifies++
	d.lastVerify = req
	if d.verifyErr != nil {
		return nil, d.verifyErr
	}
	if req.ResourceID == "" && req.ResourceType.SupportsDiscovery {
		return d.discovered, nil
	}
	return nil, nil
}

func (d *fakeDriver) ConfigureLocalClient(ctx context.Context, req Request) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logins++
	return d.loginErr
}

func (d *fakeDriver) connectCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connects
}

// noLocalDriver implements only the required Driver surface.
type noLocalDriver struct{ d *fakeDriver }

func (n *noLocalDriver) Connect(ctx context.Context, req Request) (any, error) {
	return n.d.Connect(ctx, req)
}

func (n *noLocalDriver) Verify(ctx context.Context, req Request) ([]string, error) {
	return n.d.Verify(ctx, req)
}

func testTypeSpec() TypeSpec {
	return TypeSpec{
		TypeID:      "test",
		DisplayName: "Test Connector",
		AuthMethods: []AuthMethodSpec{{
			MethodID: "password",
			Schema:   passwordSchema(),
		}},
		ResourceTypes: []ResourceTypeSpec{
			{
				ResourceTypeID:    "test-repo",
				SupportsInstances: true,
				AuthMethods:       []string{"password"},
				Resolver:          testShapeResolver(),
			},
			{
				ResourceTypeID:    "test-catalog",
				SupportsDiscovery: true,
				AuthMethods:       []string{"password"},
				Resolver:          testShapeResolver(),
			},
		},
	}
}

func newTestConnector(t *testing.T, driver Driver, resourceTypeID, resourceID string) *Connector {
	t.Helper()
	reg := NewRegistry()
	if err := reg.Register(Registration{
		Spec: testTypeSpec(),
		NewDriver: func(method AuthMethodSpec, cfg Config) (Driver, error) {
			return driver, nil
		},
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	c, err := reg.New("test", "password", map[string]string{
		"username": "bob",
		"password": "hunter2",
	}, resourceTypeID, resourceID)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestConnectCachesClient(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	c := newTestConnector(t, driver, "test-repo", "myhost:5000/team/app")

	first, err := c.Connect(context.Background(), "")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	second, err := c.Connect(context.Background(), "")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if first != second {
		t.Error("second Connect did not return the cached client")
	}
	if got := driver.connectCount(); got != 1 {
		t.Errorf("handshakes = %d, want 1", got)
	}
}

func TestConnectEquivalentIDsShareClient(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	c := newTestConnector(t, driver, "test-repo", "")

	first, err := c.Connect(context.Background(), "https://myhost:5000/team/app")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	second, err := c.Connect(context.Background(), "myhost:5000/team/app")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if first != second {
		t.Error("equivalent raw ids produced distinct clients")
	}
	if got := driver.connectCount(); got != 1 {
		t.Errorf("handshakes = %d, want 1", got)
	}
}

func TestConnectSingleFlight(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{connectDelay: 30 * time.Millisecond}
	c := newTestConnector(t, driver, "test-repo", "myhost:5000/team/app")

	const callers = 8
	clients := make([]any, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			clients[i], errs[i] = c.Connect(context.Background(), "")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if clients[i] != clients[0] {
			t.Fatalf("caller %d received a different client", i)
		}
	}
	if got := driver.connectCount(); got != 1 {
		t.Errorf("handshakes = %d, want 1 (single-flight)", got)
	}
}

func TestConnectAmbiguousWithoutResource(t *testing.T) {
	t.Parallel()

	c := newTestConnector(t, &fakeDriver{}, "test-repo", "")
	_, err := c.Connect(context.Background(), "")
	var ambiguous *AmbiguousResourceError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("want AmbiguousResourceError, got %v", err)
	}
}

func TestConnectSingleImplicitResource(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	c := newTestConnector(t, driver, "test-catalog", "")
	if _, err := c.Connect(context.Background(), ""); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if got := driver.connectCount(); got != 1 {
		t.Errorf("handshakes = %d, want 1", got)
	}
}

func TestConnectFailureNotCached(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{connectErr: &AuthorizationError{TypeID: "test", Err: errors.New("401")}}
	c := newTestConnector(t, driver, "test-repo", "myhost:5000/team/app")

	_, err := c.Connect(context.Background(), "")
	var authErr *AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("want AuthorizationError, got %v", err)
	}
	if c.cache.len() != 0 {
		t.Error("failed handshake left an entry in the cache")
	}

	driver.mu.Lock()
	driver.connectErr = nil
	driver.mu.Unlock()
	if _, err := c.Connect(context.Background(), ""); err != nil {
		t.Fatalf("Connect after fix: %v", err)
	}
	if got := driver.connectCount(); got != 2 {
		t.Errorf("handshakes = %d, want 2", got)
	}
}

func TestRotateEvictsStaleClient(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	c := newTestConnector(t, driver, "test-repo", "myhost:5000/team/app")

	first, err := c.Connect(context.Background(), "")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := c.Rotate(map[string]string{"username": "bob", "password": "rotated"}); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	second, err := c.Connect(context.Background(), "")
	if err != nil {
		t.Fatalf("Connect after rotate: %v", err)
	}
	if first == second {
		t.Error("rotated credentials served the stale client")
	}
	if got := driver.connectCount(); got != 2 {
		t.Errorf("handshakes = %d, want 2", got)
	}
	if !first.(*fakeClient).isClosed() {
		t.Error("stale client was not closed on eviction")
	}
}

func TestVerifyExplicitID(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	c := newTestConnector(t, driver, "test-repo", "")

	ids, err := c.Verify(context.Background(), "", "https://myhost:5000/team/app")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(ids) != 1 || ids[0] != "myhost:5000/team/app" {
		t.Errorf("ids = %v, want [myhost:5000/team/app]", ids)
	}
	if driver.lastVerify.Parsed.Fields["host"] != "myhost:5000" {
		t.Errorf("driver saw host %q", driver.lastVerify.Parsed.Fields["host"])
	}
	if c.cache.len() != 0 {
		t.Error("Verify touched the client cache")
	}
}

func TestVerifyUnreachableIsInconclusive(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{verifyErr: fmt.Errorf("dial tcp: %w", ErrProviderUnreachable)}
	c := newTestConnector(t, driver, "test-repo", "")

	ids, err := c.Verify(context.Background(), "", "myhost:5000/team/app")
	if err != nil {
		t.Fatalf("unreachable provider must not be an error, got %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("ids = %v, want empty", ids)
	}
}

func TestVerifyAuthFailureIsHard(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{verifyErr: &AuthorizationError{TypeID: "test", Err: errors.New("denied")}}
	c := newTestConnector(t, driver, "test-repo", "")

	_, err := c.Verify(context.Background(), "", "myhost:5000/team/app")
	var authErr *AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("want AuthorizationError, got %v", err)
	}
}

func TestVerifyDiscovery(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{discovered: []string{"alpha", "beta"}}
	c := newTestConnector(t, driver, "test-catalog", "")

	ids, err := c.Verify(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(ids) != 2 || ids[0] != "alpha" || ids[1] != "beta" {
		t.Errorf("ids = %v, want [alpha beta]", ids)
	}
}

func TestVerifyNoIDNoDiscovery(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	c := newTestConnector(t, driver, "test-repo", "")

	ids, err := c.Verify(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Errorf("ids = %#v, want empty non-nil list", ids)
	}
}

func TestConfigureLocalClient(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	c := newTestConnector(t, driver, "test-repo", "myhost:5000/team/app")
	if err := c.ConfigureLocalClient(context.Background(), ""); err != nil {
		t.Fatalf("ConfigureLocalClient: %v", err)
	}
	if driver.logins != 1 {
		t.Errorf("logins = %d, want 1", driver.logins)
	}
}

func TestConfigureLocalClientNotSupported(t *testing.T) {
	t.Parallel()

	c := newTestConnector(t, &noLocalDriver{d: &fakeDriver{}}, "test-repo", "myhost:5000/team/app")
	err := c.ConfigureLocalClient(context.Background(), "")
	var notSupported *NotSupportedError
	if !errors.As(err, &notSupported) {
		t.Fatalf("want NotSupportedError, got %v", err)
	}
}

func TestDisconnectClosesClients(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	c := newTestConnector(t, driver, "test-repo", "")

	first, err := c.Connect(context.Background(), "myhost:5000/team/app")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	second, err := c.Connect(context.Background(), "other:5000/team/app")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if !first.(*fakeClient).isClosed() || !second.(*fakeClient).isClosed() {
		t.Error("Disconnect returned before closing cached clients")
	}
	if c.cache.len() != 0 {
		t.Error("cache not empty after Disconnect")
	}

	if _, err := c.Connect(context.Background(), "myhost:5000/team/app"); err != nil {
		t.Fatalf("Connect after Disconnect: %v", err)
	}
	if got := driver.connectCount(); got != 3 {
		t.Errorf("handshakes = %d, want 3 (fresh handshake after disconnect)", got)
	}
}
