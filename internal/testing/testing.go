package testing

import (
	"flag"
	"testing"
)

var (
	Integration = flag.Bool("integration", false, "run integration tests")
	MinioImage  = flag.String("minio-image", "minio/minio:latest", "container image used by the s3 integration tests")
)

// SkipIfIntegration skips the test if -integration flag is set (for unit tests)
func SkipIfIntegration(t *testing.T) {
	if *Integration {
		t.Skip("Skipping unit test when running integration tests")
	}
}

// SkipIfNotIntegration skips the test if -integration flag is not set (for integration tests)
func SkipIfNotIntegration(t *testing.T) {
	if !*Integration {
		t.Skip("Skipping integration test")
	}
}
