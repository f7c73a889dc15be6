package query

import "reflect"

type Cat struct {
	Name    string
	Weight  int
	Kittens []Kitten
}

type Kitten struct {
	Name string
}

var (
	catType    = reflect.TypeOf(Cat{})
	kittenType = reflect.TypeOf(Kitten{})

	cat        = Root(catType, "cat")
	catName    = cat.Get("name", StringType)
	catWeight  = cat.Get("weight", IntType)
	catKittens = cat.Collection("kittens", kittenType)
	otherCat   = Root(catType, "other")
	kitten     = Root(kittenType, "kitten")
	kittenName = kitten.Get("name", StringType)
)
