package mail

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: folder resolution is pass-through safe and stable
// Literal paths (containing "/" or "[") must never be rewritten, so
// resolving a resolved path behaves the same as resolving it once.

func TestProperty_FolderResolutionIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	providerGen := gen.OneConstOf("gmail", "yahoo", "outlook", "yandex", "icloud")

	keywordGen := gen.OneConstOf(
		"inbox", "sent", "drafts", "spam", "trash", "starred",
		"kotak masuk", "terkirim", "draf", "sampah", "tong sampah",
		"berbintang", "semua email", "penting",
	)

	// Resolving twice equals resolving once: the first resolution yields
	// either a literal path (pass-through on the second call) or an
	// unmatched keyword returned unchanged.
	properties.Property("resolve_is_idempotent_for_keywords", prop.ForAll(
		func(provider, keyword string) bool {
			once := ResolveFolder(provider, keyword)
			twice := ResolveFolder(provider, once)
			return once == twice
		},
		providerGen,
		keywordGen,
	))

	properties.Property("literal_paths_pass_through_unchanged", prop.ForAll(
		func(provider, segment string) bool {
			literal := "[Custom]/" + segment
			return ResolveFolder(provider, literal) == literal
		},
		providerGen,
		gen.AlphaString(),
	))

	properties.Property("unknown_keywords_pass_through_unchanged", prop.ForAll(
		func(provider string) bool {
			return ResolveFolder(provider, "ProjectX") == "ProjectX"
		},
		providerGen,
	))

	properties.TestingRun(t)
}

// Property: known keywords resolve regardless of case and whitespace
func TestProperty_FolderKeywordNormalization(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	// Random casing of "tong sampah" with surrounding whitespace
	casedTrashGen := gen.SliceOfN(len("tong sampah"), gen.Bool()).Map(func(upper []bool) string {
		base := "tong sampah"
		out := make([]byte, len(base))
		for i := 0; i < len(base); i++ {
			c := base[i]
			if upper[i] && c >= 'a' && c <= 'z' {
				c = c - 'a' + 'A'
			}
			out[i] = c
		}
		return string(out)
	})

	paddingGen := gen.OneConstOf("", " ", "  ", "\t")

	properties.Property("tong_sampah_always_resolves_to_gmail_trash", prop.ForAll(
		func(cased, left, right string) bool {
			return ResolveFolder("gmail", left+cased+right) == "[Gmail]/Tong Sampah"
		},
		casedTrashGen,
		paddingGen,
		paddingGen,
	))

	properties.TestingRun(t)
}

func TestResolveFolder(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		logical  string
		want     string
	}{
		{"empty defaults to inbox", "gmail", "", "INBOX"},
		{"gmail inbox", "gmail", "inbox", "INBOX"},
		{"gmail indonesian inbox", "gmail", "Kotak Masuk", "INBOX"},
		{"gmail sent", "gmail", "sent", "[Gmail]/Surat Terkirim"},
		{"gmail indonesian sent", "gmail", "terkirim", "[Gmail]/Surat Terkirim"},
		{"gmail drafts", "gmail", "drafts", "[Gmail]/Draf"},
		{"gmail junk aliases spam", "gmail", "junk", "[Gmail]/Spam"},
		{"gmail trash", "gmail", "trash", "[Gmail]/Tong Sampah"},
		{"gmail starred", "gmail", "starred", "[Gmail]/Berbintang"},
		{"gmail all mail", "gmail", "all mail", "[Gmail]/Semua Email"},
		{"gmail important", "gmail", "penting", "[Gmail]/Penting"},
		{"generic sent", "outlook", "sent", "Sent Items"},
		{"generic trash", "yahoo", "tong sampah", "Trash"},
		{"generic junk", "icloud", "spam", "Junk"},
		{"literal gmail path untouched", "gmail", "[Gmail]/Spam", "[Gmail]/Spam"},
		{"literal nested path untouched", "outlook", "Work/Receipts", "Work/Receipts"},
		{"custom folder untouched", "gmail", "ProjectX", "ProjectX"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveFolder(tt.provider, tt.logical); got != tt.want {
				t.Errorf("ResolveFolder(%q, %q) = %q, want %q", tt.provider, tt.logical, got, tt.want)
			}
		})
	}
}

func TestSentFolderCandidates(t *testing.T) {
	gmail := SentFolderCandidates("gmail")
	if len(gmail) == 0 || gmail[0] != "[Gmail]/Surat Terkirim" {
		t.Errorf("gmail candidates should try the localized sent folder first, got %v", gmail)
	}

	generic := SentFolderCandidates("yahoo")
	for _, c := range generic {
		if strings.Contains(c, "[Gmail]") {
			t.Errorf("non-gmail candidates must not contain gmail paths, got %v", generic)
		}
	}
}
