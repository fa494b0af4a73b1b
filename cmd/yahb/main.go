package main

import (
	"github.com/hhkbp2/yahb"
	"github.com/hhkbp2/yahb/binding"
	"github.com/hhkbp2/yahb/workload"
)

func main() {
	binding.AddBindings()
	workload.AddProcedures()
	yahb.Main()
}
