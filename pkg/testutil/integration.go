package testutil

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/objectpool/internal/world"
	"github.com/ajitpratap0/objectpool/pkg/config"
	"github.com/ajitpratap0/objectpool/pkg/metrics"
	"github.com/ajitpratap0/objectpool/pkg/session"
)

// SessionSuite runs every test against a fresh session backed by the
// built-in world. Embedding suites set BuildConfig to choose the session
// configuration; the default config is used otherwise.
type SessionSuite struct {
	suite.Suite

	// BuildConfig returns the configuration of each test's session
	BuildConfig func() *config.Config

	ctx       context.Context
	cancel    context.CancelFunc
	world     *world.World
	session   *session.Session
	prom      *prometheus.Registry
	logs      *observer.ObservedLogs
	startTime time.Time
}

// SetupSuite runs before all tests in the suite
func (s *SessionSuite) SetupSuite() {
	s.startTime = time.Now()
}

// TearDownSuite runs after all tests in the suite
func (s *SessionSuite) TearDownSuite() {
	s.T().Logf("session suite completed in %v", time.Since(s.startTime))
}

// SetupTest creates the world and an unbegun session
func (s *SessionSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 30*time.Second)

	cfg := config.Default()
	if s.BuildConfig != nil {
		cfg = s.BuildConfig()
	}

	log, logs := ObservedLogger(zapcore.DebugLevel)
	s.logs = logs
	s.prom = prometheus.NewRegistry()
	s.world = world.NewDefault(world.WithLogger(log))

	sess, err := session.New(cfg, s.world,
		session.WithLogger(log),
		session.WithMetrics(metrics.NewPoolMetrics(s.prom, "test")))
	require.NoError(s.T(), err)
	s.session = sess
}

// TearDownTest ends the session
func (s *SessionSuite) TearDownTest() {
	if s.session != nil {
		s.session.End()
	}
	s.cancel()
}

// Context returns the test context, tagged with the session ID
func (s *SessionSuite) Context() context.Context {
	return s.session.Context(s.ctx)
}

// World returns the host world
func (s *SessionSuite) World() *world.World { return s.world }

// Session returns the session under test
func (s *SessionSuite) Session() *session.Session { return s.session }

// Metrics returns the prometheus registry holding the session's collectors
func (s *SessionSuite) Metrics() *prometheus.Registry { return s.prom }

// Logs returns every entry logged by the session, its registry and the world
func (s *SessionSuite) Logs() *observer.ObservedLogs { return s.logs }
