/*
Package graph builds and evaluates signal graphs that generate audio samples.

Nodes

A graph is a closed set of node variants stored in an arena:

    Constant   - a fixed value;
    Oscillator - sine, square, saw or triangle with a fixed or modulated frequency;
    Envelope   - attack-decay-sustain-release or attack-release amplitude envelope;
    Sum        - sum of children, no gain compensation;
    Product    - product of children, e.g. oscillator times envelope;
    Gain       - child scaled by a factor;
    Offset     - child shifted by a constant.

Nodes are created with a Builder and referenced by Node handles. A handle can
be passed to more than one parent. The arena owns the state of every node and
evaluates each node exactly once per sample index, so all parents of a shared
node read the same value and its phase advances once. Use Builder.Clone to
get an independent copy of a subtree instead.

Construction

    b := graph.NewBuilder(44100)
    tone := b.Product(
        b.Sine(440),
        b.AR(10*time.Millisecond, 500*time.Millisecond),
    )
    g, err := b.Build(tone)

Invalid parameters, like negative frequencies or durations, are collected by
the builder and returned by Build, wrapped around ErrInvalidParameter. Once a
graph is built, sample generation cannot fail.

Evaluation

Graph.Render fills a non-interleaved block for consecutive sample indices.
It does not allocate and is meant to be called by a single goroutine. Gate
events from other goroutines are delivered with NoteOn and NoteOff and take
effect at the next evaluation of the envelope.
*/
package graph
