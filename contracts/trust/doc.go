/*
Package trust implements Trust Registry contract.

Trust Registry collects public opinions about free-form entries (domain names,
addresses, package names and so on) and turns them into a trust score. Any
account may vote on an entry by paying a small GAS deposit, either with
SubmitVerification or by a GAS transfer carrying the vote as data. A fixed set
of authorities may pin the score of an entry, overriding the votes.

Score is a fixed-point number with 8 decimals, see trustconst.ScoreMax. Pinned
entries score 0 or 1. Other entries score the share of trusting voters.
Entries nobody has rated have no score.

# Contract notifications

VerificationSubmitted notification. This notification is produced when a voter
records or replaces the vote for an entry.

	VerificationSubmitted:
	  - name: entryID
	    type: String
	  - name: voter
	    type: Hash160
	  - name: trusted
	    type: Boolean

VerificationPinned notification. This notification is produced when an
authority overrides the score of an entry.

	VerificationPinned:
	  - name: entryID
	    type: String
	  - name: authority
	    type: Hash160
	  - name: trusted
	    type: Boolean

AuthorityAdded notification. This notification is produced when a new account
joins the authority set.

	AuthorityAdded:
	  - name: account
	    type: Hash160

DepositChanged notification. This notification is produced when the vote
deposit is set.

	DepositChanged:
	  - name: amount
	    type: Integer
*/
package trust

/*
Contract storage model.

Current conventions:
 <h>: SHA-256 of the entry identifier
 <account>: 20-byte script hash

# Summary
Key-value storage format:
 - 'initialized' -> bool
   set once the authority set is configured
 - 'deposit' -> int
   vote deposit in GAS fractions
 - 'a<account>' -> []byte{1}
   authority set membership
 - 'e<h>' -> string
   identifier of a rated entry
 - 'v<h><account>' -> bool
   live vote of the account for the entry
 - 'p<h>' -> bool
   live authority override of the entry

# Entries
Entry records are created on the first vote or pin and never deleted. Votes
and pins replace previous values, so the storage holds at most one vote per
voter and one override per entry.
*/
