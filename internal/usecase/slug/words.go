package slug

// Word lists for pretty slugs. Kept short and unambiguous; slug uniqueness
// comes from the collision check, not from list size.
var adjectives = []string{
	"amber", "brisk", "calm", "daring", "eager", "fuzzy", "gentle", "hazel",
	"ivory", "jolly", "keen", "lively", "mellow", "nimble", "olive", "plucky",
	"quirky", "rustic", "sleek", "tidy", "umber", "vivid", "wistful", "zesty",
}

var animals = []string{
	"avocet", "badger", "curlew", "dormouse", "eider", "firecrest", "godwit",
	"heron", "ibex", "jackdaw", "kite", "lapwing", "marten", "nuthatch",
	"osprey", "pipit", "quail", "redstart", "stoat", "teal", "urchin",
	"vole", "wagtail", "yaffle",
}
