package fingerprint

import (
	"strings"
	"testing"

	"github.com/pgschema/pgmerge/schema"
)

func customers(nullable bool) *schema.Schema {
	id := schema.NewTableIdentity("public", "customer")
	s := schema.New()
	s.AddTable(&schema.Table{
		Identity: id,
		Columns: []*schema.Column{
			{Table: id, Name: "id", DataType: "bigint", Identity: true},
			{Table: id, Name: "last_name", DataType: "character varying", Length: 50, Nullable: nullable},
		},
		PrimaryKey: &schema.PrimaryKey{Name: "pk_customer", Columns: []string{"id"}},
	})
	return s
}

func TestComputeFingerprint(t *testing.T) {
	fp, err := ComputeFingerprint(customers(false), schema.New())
	if err != nil {
		t.Fatalf("ComputeFingerprint failed: %v", err)
	}
	if len(fp.Hash) != 64 {
		t.Errorf("expected a sha256 hex digest, got %q", fp.Hash)
	}
	if !strings.HasPrefix(fp.String(), "Schema fingerprint: "+fp.Hash[:8]) {
		t.Errorf("unexpected String(): %s", fp.String())
	}
}

func TestComputeFingerprintIsStable(t *testing.T) {
	a, err := ComputeFingerprint(customers(false), customers(false))
	if err != nil {
		t.Fatal(err)
	}
	b, err := ComputeFingerprint(customers(false), customers(false))
	if err != nil {
		t.Fatal(err)
	}
	if a.Hash != b.Hash {
		t.Errorf("same inputs should give the same hash: %s vs %s", a.Hash, b.Hash)
	}
}

func TestComputeFingerprintIgnoresTableOrder(t *testing.T) {
	first := customers(false)
	first.AddTable(schema.NewTable(schema.NewTableIdentity("public", "account")))

	second := schema.New()
	second.AddTable(schema.NewTable(schema.NewTableIdentity("public", "account")))
	second.AddTable(customers(false).Tables[0])

	a, _ := ComputeFingerprint(first, nil)
	b, _ := ComputeFingerprint(second, nil)
	if a.Hash != b.Hash {
		t.Error("table order should not change the fingerprint")
	}
}

func TestComputeFingerprintDetectsChanges(t *testing.T) {
	base, _ := ComputeFingerprint(customers(false), customers(false))

	tests := []struct {
		name    string
		desired *schema.Schema
		actual  func() *schema.Schema
	}{
		{"desired column changed", customers(true), func() *schema.Schema { return customers(false) }},
		{"actual column changed", customers(false), func() *schema.Schema { return customers(true) }},
		{"rows appeared", customers(false), func() *schema.Schema {
			s := customers(false)
			s.Tables[0].HasRows = true
			return s
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp, err := ComputeFingerprint(tt.desired, tt.actual())
			if err != nil {
				t.Fatal(err)
			}
			if fp.Hash == base.Hash {
				t.Error("expected a different fingerprint")
			}
		})
	}
}

func TestComputeFingerprintSideHashes(t *testing.T) {
	base, err := ComputeFingerprint(customers(false), customers(false))
	if err != nil {
		t.Fatal(err)
	}
	modelChanged, err := ComputeFingerprint(customers(true), customers(false))
	if err != nil {
		t.Fatal(err)
	}

	if base.Desired == modelChanged.Desired {
		t.Error("desired hash should follow the model")
	}
	if base.Actual != modelChanged.Actual {
		t.Error("actual hash should not depend on the model")
	}
}
