package utils

// EditDistance1Candidates enumerates every string reachable from s by a
// single insertion, substitution, adjacent transposition, or deletion
// over alphabet, without duplicates. It is used by the undefined-symbol
// diagnostic pipeline to generate spelling-suggestion candidates that
// are then filtered against symbols that actually exist.
func EditDistance1Candidates(s string, alphabet string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(cand string) {
		if cand != s && !seen[cand] {
			seen[cand] = true
			out = append(out, cand)
		}
	}

	// Deletion.
	for i := range s {
		add(s[:i] + s[i+1:])
	}

	// Substitution.
	for i := range s {
		for _, c := range alphabet {
			add(s[:i] + string(c) + s[i+1:])
		}
	}

	// Insertion.
	for i := 0; i <= len(s); i++ {
		for _, c := range alphabet {
			add(s[:i] + string(c) + s[i:])
		}
	}

	// Adjacent transposition.
	for i := 0; i+1 < len(s); i++ {
		b := []byte(s)
		b[i], b[i+1] = b[i+1], b[i]
		add(string(b))
	}

	return out
}
