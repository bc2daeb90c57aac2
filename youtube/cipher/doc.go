/*
Package cipher recovers and applies the signature transform of the platform
player script.

Gated formats carry a scrambled signature ("s") that must be turned into the
plaintext "signature" query value. The player script does this with a short
decode function built from three primitives:

  - reverse the whole sequence
  - splice: drop the first n elements
  - swap index 0 with index n mod the current length

Identifiers in the script are randomized on every deployment, but the shape
of each statement is stable. The package therefore never interprets names.
It locates the decode function by its call site, splits its body into
statements, and classifies every statement with an ordered rule table
(statementRules). Calls into helper methods are resolved by classifying the
helper's own body (helperRules). New shapes are supported by adding a rule.

# Usage

	r := cipher.NewResolver(tr, cipher.WithCache(cipher.NewMemoryCache(0)))
	prog, err := r.Resolve(ctx, watchPage)
	if err != nil {
		return err
	}
	sig := prog.Decipher(format.S)

Programs have a text form used by the CLI:

	fmt.Println(prog) // reverse splice:2 swap:7
	prog, err = cipher.ParseProgram("reverse splice:2 swap:7")

# Error Codes

  - PLAYER_NOT_FOUND: the watch page references no player script
  - PLAYER_DOWNLOAD_FAILED: the player script could not be fetched
  - CIPHER_FUNCTION_NAME_NOT_FOUND: no known call site of the decode function
  - CIPHER_FUNCTION_BODY_NOT_FOUND: no known declaration of the decode function
  - HELPER_FUNCTION_NOT_FOUND: a called helper method is not declared
  - UNPARSABLE_INSTRUCTION: a statement or helper body has an unknown shape

Every code except PLAYER_DOWNLOAD_FAILED unwraps to errs.ErrPlatformFormatChanged.
None of them is worth retrying against the same player script.

# Thread Safety

Program values are immutable and safe for concurrent use. Resolver is safe
for concurrent use when its Fetcher and Cache are; MemoryCache is.
*/
package cipher
