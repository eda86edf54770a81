/*
resfile.go, part of GCNdesign



LICENSE

Copyright (c) 2024 Raul Mera <rmeraa{at}academicosDOTutaDOTcl>


This program, including its documentation,
is free software; you can redistribute it and/or modify
it under the terms of the GNU General Public License version 2.0 as
published by the Free Software Foundation.

This program and its documentation is distributed in the hope that
it will be useful, but WITHOUT ANY WARRANTY; without even the
implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR
PURPOSE.  See the GNU General Public License for more details.

You should have received a copy of the GNU General
Public License along with this program.  If not, see
<http://www.gnu.org/licenses/>.

*/

// Package resfile turns per-residue predictions into the resfile read by
// the Rosetta packer, and fixes chosen residues to their native type.
package resfile

import (
	"bufio"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rmera/gcndesign/internal/model"
	"github.com/rmera/gcndesign/internal/structure"
)

// Header starts every generated resfile.
const Header = "NATAA\nstart\n"

// Options control which types are allowed at each position.
type Options struct {
	ProbCut       float64 //cumulative probability to reach
	Unused        string  //one-letter types never allowed
	IncludeNative bool    //always allow the native type
}

// Allowed returns the types allowed at one residue, most probable first.
func Allowed(p *model.Prediction, o Options) string {
	order := make([]int, structure.NumAA)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return p.Prob[order[a]] > p.Prob[order[b]] })
	unused := strings.ToUpper(o.Unused)
	var sb strings.Builder
	cum := 0.0
	for _, i := range order {
		aa := structure.Alphabet[i]
		if strings.IndexByte(unused, aa) >= 0 {
			continue
		}
		sb.WriteByte(aa)
		cum += p.Prob[i]
		if cum >= o.ProbCut {
			break
		}
	}
	ret := sb.String()
	if o.IncludeNative && structure.Index(p.Original) >= 0 && !strings.ContainsRune(ret, rune(p.Original)) {
		ret += string(p.Original)
	}
	return ret
}

// Generate writes one PIKAA line per residue. A residue with every type
// excluded keeps its native type.
func Generate(preds []model.Prediction, o Options) string {
	var sb strings.Builder
	sb.WriteString(Header)
	for i := range preds {
		p := &preds[i]
		if aa := Allowed(p, o); aa != "" {
			fmt.Fprintf(&sb, "%4d %s PIKAA %s\n", p.ResNum, p.Chain, aa)
			continue
		}
		fmt.Fprintf(&sb, "%4d %s NATAA\n", p.ResNum, p.Chain)
	}
	return sb.String()
}

// Residue identifies a residue by number and chain.
type Residue struct {
	Num   int
	Chain string
}

var (
	single = regexp.MustCompile(`^(-?\d+)([A-Za-z]+)$`)
	span   = regexp.MustCompile(`^(-?\d+)([A-Za-z]+)-(-?\d+)([A-Za-z]+)$`)
	chain  = regexp.MustCompile(`^@([A-Za-z]+)$`)
)

// ExpandKeep parses keep tokens: "12A" is residue 12 of chain A, "3A-5A"
// residues 3 to 5 of chain A and "@C" residues 1 to maxResNum of chain C.
// Residues are returned in token order, without duplicates.
func ExpandKeep(tokens []string, maxResNum int) ([]Residue, error) {
	var ret []Residue
	seen := make(map[Residue]bool)
	add := func(from, to int, ch string) {
		for n := from; n <= to; n++ {
			r := Residue{Num: n, Chain: ch}
			if !seen[r] {
				seen[r] = true
				ret = append(ret, r)
			}
		}
	}
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if m := chain.FindStringSubmatch(tok); m != nil {
			add(1, maxResNum, m[1])
			continue
		}
		if m := single.FindStringSubmatch(tok); m != nil {
			n, _ := strconv.Atoi(m[1])
			add(n, n, m[2])
			continue
		}
		if m := span.FindStringSubmatch(tok); m != nil {
			a, _ := strconv.Atoi(m[1])
			b, _ := strconv.Atoi(m[3])
			if m[2] != m[4] {
				return nil, fmt.Errorf("keep range %q spans chains %s and %s", tok, m[2], m[4])
			}
			if b < a {
				return nil, fmt.Errorf("keep range %q is reversed", tok)
			}
			add(a, b, m[2])
			continue
		}
		return nil, fmt.Errorf("cannot parse keep token %q", tok)
	}
	return ret, nil
}

// FixNative rewrites the lines of the listed residues as NATAA lines.
// Other lines are left as they are.
func FixNative(resfile string, keep []Residue) string {
	fixed := make(map[Residue]bool, len(keep))
	for _, r := range keep {
		fixed[r] = true
	}
	var sb strings.Builder
	sc := bufio.NewScanner(strings.NewReader(resfile))
	for sc.Scan() {
		line := sc.Text()
		if f := strings.Fields(line); len(f) >= 3 {
			if n, err := strconv.Atoi(f[0]); err == nil && fixed[Residue{Num: n, Chain: f[1]}] {
				line = fmt.Sprintf("%4d %s NATAA", n, f[1])
			}
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}
