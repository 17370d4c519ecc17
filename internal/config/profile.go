package config

import (
	"sort"
	"strings"
)

// ProfileName identifies a dataset convention.
type ProfileName string

const (
	ProfileRTI        ProfileName = "rti"         // RTI dome captures, JPG frames in a nested rti/ folder.
	ProfileDiLiGenTMV ProfileName = "diligent-mv" // DiLiGenT-MV viewpoint folders of PNG frames.
)

// Profile describes where an experiment's source frames live and how the
// standardized input set names them. The two conventions differ in
// extension and are kept as separate profiles rather than unified.
type Profile struct {
	Name ProfileName

	// SourceDirName is the directory holding the raw captures, searched for
	// recursively inside each experiment. Empty means the experiment
	// directory itself holds them.
	SourceDirName string

	// ExperimentPrefix restricts which subdirectories of the input root are
	// experiments. Empty accepts every subdirectory.
	ExperimentPrefix string

	SourceExt string // Source frame extension, matched case-insensitively (with dot).
	FrameExt  string // Extension in the "L (n).<EXT>" template (no dot).
	MaskName  string // Optional mask copied unrenamed from the source dir.
}

var profiles = map[ProfileName]Profile{
	ProfileRTI: {
		Name:          ProfileRTI,
		SourceDirName: "rti",
		SourceExt:     ".jpg",
		FrameExt:      "JPG",
		MaskName:      "mask.jpg",
	},
	ProfileDiLiGenTMV: {
		Name:             ProfileDiLiGenTMV,
		ExperimentPrefix: "view_",
		SourceExt:        ".png",
		FrameExt:         "PNG",
		MaskName:         "mask.png",
	},
}

// LookupProfile returns the profile registered under name.
func LookupProfile(name ProfileName) (Profile, bool) {
	p, ok := profiles[name]
	return p, ok
}

func profileChoices() string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, "'"+string(n)+"'")
	}
	sort.Strings(names)
	return strings.Join(names, " or ")
}
