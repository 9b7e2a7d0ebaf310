// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vocab

// Builtin returns the full built-in vocabulary: hemostatic device names with
// their trade and generic synonyms, and the urological procedures whose
// literature mentions them.
func Builtin() Vocabulary {
	return Vocabulary{
		Devices: []Group{
			{Term: "Hemoblast", Synonyms: []string{"Biom'up", "HEMOBLAST Bellows"}},
			{Term: "Gelfoam", Synonyms: []string{"Gelatin sponge", "absorbable gelatin sponge"}},
			{Term: "Surgicel", Synonyms: []string{"oxidized regenerated cellulose"}},
			{Term: "Floseal", Synonyms: []string{"gelatin-thrombin matrix"}},
			{Term: "Surgiflo", Synonyms: []string{"flowable gelatin matrix"}},
			{Term: "TachoSil", Synonyms: []string{"fibrin sealant patch"}},
			{Term: "Tisseel", Synonyms: []string{"fibrin glue", "fibrin sealant"}},
			{Term: "Arista", Synonyms: []string{"microporous polysaccharide hemospheres"}},
			{Term: "Avitene", Synonyms: []string{"microfibrillar collagen hemostat"}},
			{Term: "Hemopatch", Synonyms: []string{"sealing hemostat patch"}},
		},
		Indicators: []Group{
			{Term: "urological surgery", Synonyms: []string{"urologic surgery"}},
			{Term: "vascular surgery"},
			{Term: "kidney transplant", Synonyms: []string{"renal transplant", "renal transplantation"}},
			{Term: "prostatectomy", Synonyms: []string{"radical prostatectomy"}},
			{Term: "nephrectomy", Synonyms: []string{"partial nephrectomy"}},
			{Term: "nephrolithotomy", Synonyms: []string{"percutaneous nephrolithotomy"}},
			{Term: "cystectomy"},
			{Term: "pyeloplasty"},
			{Term: "ureterectomy"},
		},
	}
}

// BuiltinMini returns a four-by-three cut of the built-in vocabulary, small
// enough for smoke runs that finish in a handful of requests.
func BuiltinMini() Vocabulary {
	return Vocabulary{
		Devices: []Group{
			{Term: "Hemoblast", Synonyms: []string{"Biom'up"}},
			{Term: "Gelfoam", Synonyms: []string{"Gelatin sponge"}},
		},
		Indicators: []Group{
			{Term: "urological surgery"},
			{Term: "vascular surgery"},
			{Term: "renal transplant"},
		},
	}
}
