/*
Package catalog holds the authored simulations.

Simulations are YAML documents. The built-in set is embedded in the binary; additional
documents can be loaded from a directory with LoadDir. Every simulation is normalized
(round and summary markers derived from step ids) and validated before it is registered.

A document looks like:

	id: microecon-cafe
	title: Café Owner
	initial_state: { dailyProfit: 320 }
	metrics:
	  - { key: dailyProfit, label: Daily profit, format: currency, min: -100, max: 600 }
	steps:
	  - id: period1_baseline
	    event: It's the start of the semester.
	    decisions:
	      - { id: keep_prices, text: Keep prices the same, effects: { dailyProfit: 0 } }
*/
package catalog
