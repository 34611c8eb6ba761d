// Package testkit provides ARFF fixtures shared by package tests
package testkit

import (
	"fmt"
	"math/rand"
	"strings"
)

// SmallARFF is a 10-row dataset with two numeric attributes and one nominal attribute
const SmallARFF = `% tiny NSL-KDD style sample
@relation 'kdd_small'

@attribute 'duration' real
@attribute 'src_bytes' real
@attribute 'class' {'normal','anomaly'}

@data
0,491,'normal'
0,146,'normal'
0,0,'anomaly'
0,232,'normal'
0,199,'normal'
0,0,'anomaly'
0,0,'anomaly'
0,0,'anomaly'
2,287,'normal'
0,334,'anomaly'
`

// Protocols, flags and services used by GenerateKDD
var (
	Protocols = []string{"tcp", "udp", "icmp"}
	Flags     = []string{"SF", "S0", "REJ", "RSTR"}
	Services  = []string{
		"http", "private", "domain_u", "smtp", "ftp_data", "eco_i", "other", "ecr_i",
		"telnet", "finger", "ftp", "auth", "Z39_50", "uucp", "courier", "bgp",
		"whois", "uucp_path", "iso_tsap", "time", "imap4", "nnsp", "vmnet", "urp_i",
		"domain",
	}
)

// GenerateKDD builds a deterministic NSL-KDD-like ARFF document with the given number of rows.
// Columns: duration, protocol_type, service, flag, src_bytes, dst_bytes, count, class.
func GenerateKDD(rows int, seed int64) string {
	rng := rand.New(rand.NewSource(seed))

	var b strings.Builder
	b.WriteString("@relation 'KDDTrain'\n\n")
	b.WriteString("@attribute 'duration' real\n")
	b.WriteString("@attribute 'protocol_type' " + nominal(Protocols) + "\n")
	b.WriteString("@attribute 'service' " + nominal(Services) + "\n")
	b.WriteString("@attribute 'flag' " + nominal(Flags) + "\n")
	b.WriteString("@attribute 'src_bytes' real\n")
	b.WriteString("@attribute 'dst_bytes' real\n")
	b.WriteString("@attribute 'count' integer\n")
	b.WriteString("@attribute 'class' {'normal','anomaly'}\n\n")
	b.WriteString("@data\n")

	for i := 0; i < rows; i++ {
		class := "normal"
		if rng.Float64() < 0.3 {
			class = "anomaly"
		}
		fmt.Fprintf(&b, "%d,%s,%s,%s,%d,%d,%d,%s\n",
			rng.Intn(5),
			Protocols[rng.Intn(len(Protocols))],
			Services[rng.Intn(len(Services))],
			Flags[rng.Intn(len(Flags))],
			rng.Intn(5000),
			rng.Intn(10000),
			rng.Intn(512),
			class,
		)
	}
	return b.String()
}

func nominal(values []string) string {
	return "{" + strings.Join(values, ",") + "}"
}
