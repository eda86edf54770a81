/*
alphabet.go, part of GCNdesign



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

package structure

// Alphabet is the order of the amino-acid classes predicted by the network.
const Alphabet = "ACDEFGHIKLMNPQRSTVWY"

// NumAA is the number of predicted classes.
const NumAA = len(Alphabet)

var three2one = map[string]byte{
	"ALA": 'A', "CYS": 'C', "ASP": 'D', "GLU": 'E', "PHE": 'F',
	"GLY": 'G', "HIS": 'H', "ILE": 'I', "LYS": 'K', "LEU": 'L',
	"MET": 'M', "ASN": 'N', "PRO": 'P', "GLN": 'Q', "ARG": 'R',
	"SER": 'S', "THR": 'T', "VAL": 'V', "TRP": 'W', "TYR": 'Y',
	//common modified residues, read as their parent
	"MSE": 'M', "HSD": 'H', "HSE": 'H', "HSP": 'H', "HIE": 'H', "HID": 'H', "HIP": 'H', "CYX": 'C',
}

var one2three = map[byte]string{
	'A': "ALA", 'C': "CYS", 'D': "ASP", 'E': "GLU", 'F': "PHE",
	'G': "GLY", 'H': "HIS", 'I': "ILE", 'K': "LYS", 'L': "LEU",
	'M': "MET", 'N': "ASN", 'P': "PRO", 'Q': "GLN", 'R': "ARG",
	'S': "SER", 'T': "THR", 'V': "VAL", 'W': "TRP", 'Y': "TYR",
}

// OneLetter returns the one-letter code for a residue name, or 'X'.
func OneLetter(res3 string) byte {
	if l, ok := three2one[res3]; ok {
		return l
	}
	return 'X'
}

// ThreeLetter returns the residue name for a one-letter code, or "UNK".
func ThreeLetter(aa byte) string {
	if n, ok := one2three[aa]; ok {
		return n
	}
	return "UNK"
}

// Index returns the class index of a one-letter code, or -1 when the code is
// not one of the predicted classes.
func Index(aa byte) int {
	for i := 0; i < NumAA; i++ {
		if Alphabet[i] == aa {
			return i
		}
	}
	return -1
}

// IsAminoAcid reports whether the residue name is read as a protein residue.
func IsAminoAcid(res3 string) bool {
	_, ok := three2one[res3]
	return ok
}
