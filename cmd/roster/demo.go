package main

import (
	"context"

	"github.com/hurttlocker/roster/internal/store"
)

// demoPeople is a small directory for trying roster without real data.
// Popularity values are deliberately uneven so tie-breaks are visible.
var demoPeople = []store.Person{
	{Name: "John Smith", Popularity: 120},
	{Name: "Jon Smith", Popularity: 14},
	{Name: "Jane Smith", Popularity: 80},
	{Name: "John Smythe", Popularity: 6},
	{Name: "María García", Popularity: 95},
	{Name: "Maria Garcia-Lopez", Popularity: 22},
	{Name: "Wei Zhang", Popularity: 70},
	{Name: "Li Wei", Popularity: 55},
	{Name: "Élodie Dupont", Popularity: 31},
	{Name: "Elodie Dupond", Popularity: 4},
	{Name: "Mohammed Al-Farsi", Popularity: 47},
	{Name: "Muhammad Alfarsi", Popularity: 9},
	{Name: "Katarzyna Wiśniewska", Popularity: 18},
	{Name: "Kate Wisniewski", Popularity: 7},
	{Name: "O'Connor, Patrick", Popularity: 26},
	{Name: "Patrick O Connor", Popularity: 3},
	{Name: "Anna Lindqvist", Popularity: 41},
	{Name: "Ana Lindquist", Popularity: 5},
	{Name: "Dmitri Ivanov", Popularity: 38},
	{Name: "Dimitri Ivanoff", Popularity: 2},
}

// seedDemo inserts the demo records and returns how many were added.
func seedDemo(ctx context.Context, dir store.Directory) (int, error) {
	batch := make([]*store.Person, 0, len(demoPeople))
	for i := range demoPeople {
		p := demoPeople[i]
		batch = append(batch, &p)
	}
	ids, err := dir.AddPersonBatch(ctx, batch)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
