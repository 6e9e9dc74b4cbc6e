package mpi

import (
	"strings"

	"github.com/andes-k8s/api/pkg/match"
)

// DeriveKeys maps an identity to the coarse blocking keys used to shrink the
// candidate set before scoring. Deterministic and pure: two registrations of
// the same person with case or diacritic differences collide into the same
// buckets. The key set is stored on the index document and reused as an
// exact filter by suggest queries.
func DeriveKeys(identity PatientIdentity) []string {
	var keys []string
	seen := map[string]struct{}{}

	add := func(k string) {
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	documento := match.Normalize(identity.Documento)
	apellido := match.Normalize(identity.Apellido)
	nombre := match.Normalize(identity.Nombre)

	add(docKey(documento))
	add(surnameKey(apellido))
	add(surnameInitialKey(apellido, nombre))

	return keys
}

func docKey(documento string) string {
	if documento == "" {
		return ""
	}
	return "doc:" + documento
}

// surnameKey collapses a surname to its consonant skeleton so that common
// vowel-level misspellings still share a bucket ("lopez" and "lopes" do not,
// but "lopez" and "lopiz" do).
func surnameKey(apellido string) string {
	if apellido == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("ape:")
	b.WriteByte(apellido[0])
	for _, r := range apellido[1:] {
		switch r {
		case 'a', 'e', 'i', 'o', 'u', ' ', '\'', '-':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func surnameInitialKey(apellido, nombre string) string {
	if apellido == "" || nombre == "" {
		return ""
	}
	return "ani:" + apellido + ":" + nombre[:1]
}
