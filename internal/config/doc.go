// Package config defines configuration structures for the slcflow CLI.
//
// Configuration can be provided via, in increasing precedence:
//   - YAML configuration file (-config)
//   - .env file, loaded into the environment without overriding it
//   - Environment variables (SLCFLOW_ prefix)
//   - Command-line flags
//
// # Structure
//
//	type Config struct {
//	    OrbitURL  string
//	    UserAgent string
//	    Workers   int
//	    Force     bool
//	    Progress  bool
//	    Telemetry bool
//	    LogDir    string
//	    Timeout   time.Duration
//	    Retry     RetryConfig   // attempts, backoff, max_backoff
//	    Pool      PoolConfig    // divisor, min, max
//	    Tools     ToolsConfig   // dem, stack_sentinel, run
//	    Stack     StackConfig   // expected_steps, cores
//	}
//
// Nested keys map to environment variables by joining with underscores:
// retry.max_backoff is SLCFLOW_RETRY_MAX_BACKOFF.
package config
