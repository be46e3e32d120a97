package lang

func init() {
	register(&Language{
		Name:    CPP,
		Display: "C++",
		Extensions: map[string]FileType{
			"cpp": CPPSource,
			"c++": CPPSource,
			"cxx": CPPSource,
			"cc":  CPPSource,

			"hpp": CPPHeader,
			"h++": CPPHeader,
			"hxx": CPPHeader,
			"hh":  CPPHeader,

			"cppm": CPPModule,
			"c++m": CPPModule,
			"cxxm": CPPModule,
			"ccm":  CPPModule,
			"ixx":  CPPModule,
			"ii":   CPPModule,
		},
		Compilers: []string{"c++", "clang++", "g++"},
	})
}
