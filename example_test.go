package adns_test

import (
	"context"
	"fmt"

	"github.com/quietvale/adns"
)

func Example_resolver() {
	r := adns.New(adns.Options{})
	defer r.Close()

	records, err := r.Resolve4(context.Background(), "example.com.")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(len(records) > 0)
}

func Example_reverse() {
	r := adns.New(adns.Options{})
	defer r.Close()

	names, err := r.Reverse(context.Background(), []byte{93, 184, 216, 34})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(len(names) >= 0)
}
