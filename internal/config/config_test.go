package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SKETCHTEX_MODEL", "")
	t.Setenv("SKETCHTEX_EFFORT", "")
	t.Setenv("COMPILE_COMPILER", "")
	t.Setenv("SKETCHTEX_CACHE_SIZE", "")
	t.Setenv("ARTIFACT_S3_ENDPOINT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != ":8080" {
		t.Fatalf("port %q, want :8080", cfg.Port)
	}
	if cfg.Model != "gemini-2.5-flash" || cfg.Effort != "medium" || cfg.Compiler != "pdflatex" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.CacheSize != 64 {
		t.Fatalf("cache size %d, want 64", cfg.CacheSize)
	}
	if cfg.Artifact.Enabled {
		t.Fatal("artifact store must be off without an endpoint")
	}
}

func TestLoad_PortGetsColonPrefix(t *testing.T) {
	t.Setenv("PORT", "9090")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != ":9090" {
		t.Fatalf("port %q, want :9090", cfg.Port)
	}
}

func TestLoad_ArtifactStoreFromEnv(t *testing.T) {
	t.Setenv("ARTIFACT_S3_ENDPOINT", "minio.local:9000")
	t.Setenv("ARTIFACT_S3_ACCESS_KEY", "")
	t.Setenv("MINIO_ROOT_USER", "root-user")
	t.Setenv("ARTIFACT_S3_SECRET_KEY", "")
	t.Setenv("MINIO_ROOT_PASSWORD", "root-pass")
	t.Setenv("ARTIFACT_S3_USE_SSL", "false")
	t.Setenv("ARTIFACT_S3_BUCKET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	a := cfg.Artifact
	if !a.Enabled || a.Endpoint != "minio.local:9000" {
		t.Fatalf("artifact config not picked up: %+v", a)
	}
	if a.AccessKey != "root-user" || a.SecretKey != "root-pass" {
		t.Fatalf("minio root fallback not applied: %+v", a)
	}
	if a.UseSSL {
		t.Fatal("ssl should be off when explicitly disabled")
	}
	if a.Bucket != "sketchtex-artifacts" {
		t.Fatalf("bucket %q, want default", a.Bucket)
	}
}
