package mock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Core interfaces
type Database interface {
	Connect() error
	IsConnected() bool
}

type Cache interface {
	Get(key string) any
	DB() Database
}

// Recorder collects the names of beans in the order they were shut down.
type Recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *Recorder) Record(name string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

// Mock implementations
type MockDB struct {
	Name      string
	Recorder  *Recorder
	connected atomic.Bool
}

func NewMockDB() *MockDB {
	db := &MockDB{Name: "db"}
	db.connected.Store(true)
	return db
}

func (m *MockDB) Connect() error {
	m.connected.Store(true)
	return nil
}

func (m *MockDB) IsConnected() bool {
	return m.connected.Load()
}

func (m *MockDB) OnShutdown(ctx context.Context) error {
	m.connected.Store(false)
	m.Recorder.Record(m.Name)
	return nil
}

type MockCache struct {
	db Database
}

func NewMockCache(db Database) *MockCache {
	return &MockCache{db: db}
}

func (m *MockCache) Get(key string) any {
	return nil
}

func (m *MockCache) DB() Database {
	return m.db
}

// ErrBootFailure is returned by FailingDB.
var ErrBootFailure = errors.New("simulated boot failure")

// FailingDB cannot be constructed.
type FailingDB struct {
	MockDB
}

func NewFailingDB() (*FailingDB, error) {
	return nil, ErrBootFailure
}

// PanickingDB panics during construction.
type PanickingDB struct {
	MockDB
}

func NewPanickingDB() *PanickingDB {
	panic("simulated constructor panic")
}

// Circular dependency test types
type CircularService1 interface {
	GetService2() CircularService2
}

type CircularService2 interface {
	GetService1() CircularService1
}

type CircularImpl1 struct {
	svc2 CircularService2
}

func NewCircularImpl1(svc CircularService2) *CircularImpl1 {
	return &CircularImpl1{svc2: svc}
}

func (i *CircularImpl1) GetService2() CircularService2 { return i.svc2 }

type CircularImpl2 struct {
	svc1 CircularService1
}

func NewCircularImpl2(svc CircularService1) *CircularImpl2 {
	return &CircularImpl2{svc1: svc}
}

func (i *CircularImpl2) GetService1() CircularService1 { return i.svc1 }

// Deep dependency chain
type DeepService3 interface {
	GetValue() string
}

type DeepService2 interface {
	GetService3() DeepService3
}

type DeepService1 interface {
	GetService2() DeepService2
}

type DeepImpl3 struct {
	Value string
}

func NewDeepImpl3() *DeepImpl3 {
	return &DeepImpl3{Value: "deep"}
}

func (d *DeepImpl3) GetValue() string {
	return d.Value
}

type DeepImpl2 struct {
	svc3 DeepService3
}

func NewDeepImpl2(svc DeepService3) *DeepImpl2 {
	return &DeepImpl2{svc3: svc}
}

func (d *DeepImpl2) GetService3() DeepService3 {
	return d.svc3
}

type DeepImpl1 struct {
	svc2 DeepService2
}

func NewDeepImpl1(svc DeepService2) *DeepImpl1 {
	return &DeepImpl1{svc2: svc}
}

func (d *DeepImpl1) GetService2() DeepService2 {
	return d.svc2
}

// Service is implemented by SingletonTestService.
type Service interface {
	IsInitialized() bool
	ID() int64
}

// Counter hands out construction ids and counts constructions.
type Counter struct {
	n atomic.Int64
	// Delay widens the construction window in concurrency tests.
	Delay time.Duration
}

func (c *Counter) Count() int64 {
	return c.n.Load()
}

// NewService constructs a SingletonTestService, counting each call.
func (c *Counter) NewService() *SingletonTestService {
	id := c.n.Add(1)
	if c.Delay > 0 {
		time.Sleep(c.Delay)
	}
	return &SingletonTestService{initialized: true, id: id}
}

type SingletonTestService struct {
	initialized bool
	id          int64
}

func (s *SingletonTestService) IsInitialized() bool {
	return s.initialized
}

func (s *SingletonTestService) ID() int64 {
	return s.id
}

type ComplexServiceInterface interface {
	GetDB() Database
	GetCache() Cache
}

type ComplexService struct {
	DB    Database
	Cache Cache
}

func NewComplexService(db Database, cache Cache) *ComplexService {
	return &ComplexService{DB: db, Cache: cache}
}

func (c *ComplexService) GetDB() Database {
	return c.DB
}

func (c *ComplexService) GetCache() Cache {
	return c.Cache
}

// Greeter has several implementations for disambiguation tests.
type Greeter interface {
	Greet() string
}

type English struct{}

func (English) Greet() string { return "hello" }

type French struct{}

func (French) Greet() string { return "bonjour" }

type German struct{}

func (German) Greet() string { return "hallo" }

// Plugin implementations carry their own precedence.
type Plugin interface {
	PluginName() string
}

type RankedPlugin struct {
	Name string
	Rank int
}

func (p *RankedPlugin) PluginName() string { return p.Name }
func (p *RankedPlugin) Order() int         { return p.Rank }

type PlainPlugin struct {
	Name string
}

func (p *PlainPlugin) PluginName() string { return p.Name }

// Closer is disposed through io.Closer.
type Closer struct {
	Name     string
	Recorder *Recorder
	Err      error
}

func (c *Closer) Close() error {
	c.Recorder.Record(c.Name)
	return c.Err
}
