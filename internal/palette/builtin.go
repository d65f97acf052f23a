package palette

import "sort"

// kanagawa is the Kanagawa color scheme.
var kanagawa = []string{
	"#16161D", // sumiInk0
	"#181820", // sumiInk1
	"#1F1F28", // sumiInk2
	"#2A2A37", // sumiInk3
	"#363646", // sumiInk4
	"#54546D", // sumiInk5
	"#223249", // waveBlue1
	"#2D4F67", // waveBlue2
	"#2B3328", // winterGreen
	"#49443C", // winterYellow
	"#43242B", // winterRed
	"#252535", // winterBlue
	"#76946A", // autumnGreen
	"#C34043", // autumnRed
	"#DCA561", // autumnYellow
	"#E82424", // samuraiRed
	"#FF9E3B", // roninYellow
	"#6A9589", // waveAqua1
	"#7AA89F", // waveAqua2
	"#658594", // dragonBlue
	"#727169", // fujiGray
	"#938AA9", // springViolet1
	"#9CABCA", // springViolet2
	"#957FB8", // oniViolet
	"#7E9CD8", // crystalBlue
	"#7FB4CA", // springBlue
	"#A3D4D5", // lightBlue
	"#98BB6C", // springGreen
	"#938056", // boatYellow1
	"#C0A36E", // boatYellow2
	"#E6C384", // carpYellow
	"#D27E99", // sakuraPink
	"#E46876", // waveRed
	"#FF5D62", // peachRed
	"#FFA066", // surimiOrange
	"#717C7C", // katanaGray
	"#C8C093", // oldWhite
	"#DCD7BA", // fujiWhite
}

var builtins = map[string][]string{
	"kanagawa": kanagawa,
}

// Builtin returns a copy of the named built-in scheme.
func Builtin(name string) ([]string, bool) {
	codes, ok := builtins[name]
	if !ok {
		return nil, false
	}
	return append([]string(nil), codes...), true
}

// BuiltinNames lists the built-in schemes in sorted order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
