package lang

func init() {
	register(&Language{
		Name:    C,
		Display: "C",
		Extensions: map[string]FileType{
			"c": CSource,
			"h": CHeader,
		},
		Compilers: []string{"cc", "clang", "gcc"},
	})
}
