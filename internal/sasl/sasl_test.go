package sasl

import "testing"

func TestDeriveMechanismSelection(t *testing.T) {
	cases := []struct {
		name       string
		simpleBind bool
		want       string
	}{
		{"sasl simple bind picks SASL-simple", true, MechanismSimple},
		{"sasl interactive bind picks GSSAPI", false, MechanismGSSAPI},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Derive(c.simpleBind, "secret")
			if got.Mechanism != c.want {
				t.Fatalf("Mechanism = %q, want %q", got.Mechanism, c.want)
			}

			if got.NoCanon != true {
				t.Fatalf("NoCanon = %v, want true", got.NoCanon)
			}

			if got.SecProps != "minssf=56" {
				t.Fatalf("SecProps = %q, want %q", got.SecProps, "minssf=56")
			}
		})
	}
}

func TestDerivePasswordBecomesSecret(t *testing.T) {
	got := Derive(true, "s3cret")
	if string(got.Password) != "s3cret" {
		t.Fatalf("Password = %q, want %q", got.Password, "s3cret")
	}
}
