package ldapproto

import "testing"

func TestBuildTLSConfigEmptyPathsUsesSystemDefaults(t *testing.T) {
	cfg, err := buildTLSConfig("", "", "")
	if err != nil {
		t.Fatalf("buildTLSConfig: %v", err)
	}

	if cfg.RootCAs != nil {
		t.Fatalf("RootCAs = %v, want nil (system defaults)", cfg.RootCAs)
	}

	if len(cfg.Certificates) != 0 {
		t.Fatalf("Certificates = %v, want none", cfg.Certificates)
	}
}

func TestRealmFromPrincipal(t *testing.T) {
	cases := map[string]string{
		"admin@EXAMPLE.COM": "EXAMPLE.COM",
		"admin":              "",
	}

	for principal, want := range cases {
		if got := realmFromPrincipal(principal); got != want {
			t.Fatalf("realmFromPrincipal(%q) = %q, want %q", principal, got, want)
		}
	}
}
