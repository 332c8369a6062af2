package sorter

import "testing"

func FuzzComputeEdits(f *testing.F) {
	f.Add(`:class "flex p-2 bg-red-500"`)
	f.Add(`^:tw "b a"`)
	f.Add(`:.p-2.flex`)
	f.Add(`[:div.flex.p-2 "text"]`)
	f.Add(`[:.b.a]`)
	f.Add(`[:div#id.b.a]`)
	f.Add(`:class "x :.c.b [:d.f.e ]"`)
	f.Add("")
	f.Add("\xff\xfe")
	f.Add(":class \"b\xff a\"")
	f.Add(":class \" b a\"")

	o := newTable("a", "b", "flex", "p-2", "bg-red-500")

	f.Fuzz(func(t *testing.T, s string) {
		edits, err := ComputeEdits(s, o)
		if err != nil {
			t.Fatalf("compute edits: %s", err)
		}

		last := 0
		for _, e := range edits {
			if e.Start < last || e.End > len(s) || e.Start > e.End {
				t.Fatalf("invalid edit [%d, %d) after %d in text of length %d", e.Start, e.End, last, len(s))
			}
			last = e.End
		}

		out, err := Apply(s, edits)
		if err != nil {
			t.Fatalf("apply: %s", err)
		}

		again, err := ComputeEdits(out, o)
		if err != nil {
			t.Fatalf("compute edits again: %s", err)
		}
		if len(again) != 0 {
			t.Fatalf("not idempotent: %q -> %q still has %d edits", s, out, len(again))
		}
	})
}
