package main

import (
	"fmt"
	"github.com/dasnellings/fragMix/gmm"
	"strconv"
	"strings"
)

// categoryValues is a flag.Value holding one float per mixture component, given as a comma separated list.
type categoryValues struct {
	vals [gmm.NumCategories]float64
	set  bool
}

// String to satisfy flag.Value interface
func (c *categoryValues) String() string {
	if c == nil || !c.set {
		return ""
	}
	s := make([]string, len(c.vals))
	for i := range c.vals {
		s[i] = strconv.FormatFloat(c.vals[i], 'g', -1, 64)
	}
	return strings.Join(s, ",")
}

// Set to satisfy flag.Value interface
func (c *categoryValues) Set(value string) error {
	words := strings.Split(value, ",")
	if len(words) != gmm.NumCategories {
		return fmt.Errorf("expected %d comma separated values, got %d in '%s'", gmm.NumCategories, len(words), value)
	}
	var err error
	for i := range words {
		c.vals[i], err = strconv.ParseFloat(strings.TrimSpace(words[i]), 64)
		if err != nil {
			return err
		}
	}
	c.set = true
	return nil
}
