package logindex

/*

# Log index

A log index commits to every log emitted by a chain, in order, as a single
binary merkle tree. Alongside the logs themselves it keeps filter maps, which
answer "which entries might match address A or topic T" by reading a handful
of rows rather than every log.

## Entries

The index is a sequence of entries. A block contributes

- one block delimiter entry
- per log, one entry for the address, which carries the log, and one per topic
- per transaction, one transaction delimiter entry after its logs

Every entry has four meta fields. Log entries additionally hold the address,
a fixed vector of up to 4 topics and the log data as a progressive list of 32
byte chunks.

## Filter maps

Entries are grouped in maps of 2^Log2ValuesPerMap. Each map is a matrix of
2^Log2MapHeight rows. Adding a value (the sha256 of an address, topic or
delimiter hash) appends one 32 bit column to a row chosen by hashing the value
with the map index. The column encodes the entry position in its upper bits and
a few bits of a second hash below, so a reader scanning the row can recover
candidate positions.

Rows have a limited length. A value mapped to a full row moves to the next
mapping layer, which chooses a different row and allows a longer one. Deeper
layers change their row assignment less often across consecutive maps:

	layer  maps sharing an assignment  max row length
	0      1024                         8
	1      64                           168
	2      4                            2728
	3+     1                            10920

Popular values spill quickly to deep layers, while rare ones stay in short
rows, which keeps both row length and the false positive rate bounded.

## Epochs

Maps and their entries are sharded into epochs of 2^Log2MapsPerEpoch maps. The
root of the whole index is

	hash(epoch_history_root, next_entry)

so the entry count is committed alongside the contents.

## Memory

Only the frontier of the tree is kept. Entries are collapsed to a single node
as soon as they are written, and a map's rows when the map is complete. The
nodes discarded on collapse can be kept with WithCollapseSink, and read back
through WithNodeReader, see the nodestore package.
*/
